package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
	"propguard-workers/internal/testutil"
	findsimilarlistings "propguard-workers/internal/workers/search/find-similar-listings"
	searchlistings "propguard-workers/internal/workers/search/search-listings"
)

// ==========================
// Fakes
// ==========================

type searchFunc func(ctx context.Context, in *searchlistings.Input) (*searchlistings.Output, error)

func (f searchFunc) Execute(ctx context.Context, in *searchlistings.Input) (*searchlistings.Output, error) {
	return f(ctx, in)
}

type similarFunc func(ctx context.Context, in *findsimilarlistings.Input) (*findsimilarlistings.Output, error)

func (f similarFunc) Execute(ctx context.Context, in *findsimilarlistings.Input) (*findsimilarlistings.Output, error) {
	return f(ctx, in)
}

type profileFunc func(ctx context.Context, userID string) (*models.UserProfile, bool, error)

func (f profileFunc) Load(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	return f(ctx, userID)
}

// ==========================
// Test Helper Functions
// ==========================

func newSearchHandler(t *testing.T) *searchlistings.Handler {
	cfg := &searchlistings.Config{Timeout: 5 * time.Second, DefaultLimit: 20, MaxLimit: 100, MaxCandidates: 500}
	return searchlistings.NewHandler(cfg, nil, nil, nil, logger.NewTestLogger(t))
}

func newTestServer(t *testing.T, mutate func(*Options)) http.Handler {
	opts := Options{
		Search: newSearchHandler(t),
		Similar: similarFunc(func(context.Context, *findsimilarlistings.Input) (*findsimilarlistings.Output, error) {
			return &findsimilarlistings.Output{Similar: []models.SimilarListing{}}, nil
		}),
		AccessLog: io.Discard,
		Logger:    logger.NewTestLogger(t),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewServer(opts).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func ids(listings []models.ScoredListing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

// ==========================
// Operational Endpoints
// ==========================

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t, func(o *Options) {
		o.Ready = func(context.Context) error { return fmt.Errorf("postgres: connection refused") }
	})

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = do(t, newTestServer(t, nil), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	do(t, h, http.MethodPost, "/v1/listings/sort", map[string]interface{}{"scoredListings": []interface{}{}})

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `search_api_requests_total{method="POST",route="/v1/listings/sort",status="200"}`)
}

// ==========================
// Search
// ==========================

func TestSearch(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		wantStatus     int
		validateOutput func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "inline listings ranked by relevance",
			body: map[string]interface{}{
				"listings": testutil.Listings(),
				"profile":  testutil.Profile(),
			},
			wantStatus: http.StatusOK,
			validateOutput: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out searchlistings.Output
				decodeBody(t, rec, &out)
				assert.Equal(t, []string{"listing-1", "listing-3", "listing-2"}, ids(out.Results))
				assert.Equal(t, 95, out.Results[0].MatchScore)
				assert.Equal(t, searchlistings.SourceInput, out.Source)
			},
		},
		{
			name: "criteria narrow the candidates",
			body: map[string]interface{}{
				"listings": testutil.Listings(),
				"criteria": map[string]interface{}{"priceRange": map[string]interface{}{"min": 0, "max": 900000}},
				"sortBy":   "price",
			},
			wantStatus: http.StatusOK,
			validateOutput: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out searchlistings.Output
				decodeBody(t, rec, &out)
				assert.Equal(t, []string{"listing-2", "listing-1"}, ids(out.Results))
				assert.Equal(t, 3, out.CandidateCount)
			},
		},
		{
			name: "unknown sort key",
			body: map[string]interface{}{
				"listings": testutil.Listings(),
				"sortBy":   "popularity",
			},
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body errorBody
				decodeBody(t, rec, &body)
				assert.Equal(t, string(errors.ErrCodeInvalidSort), body.Code)
				assert.Equal(t, "sortBy", body.Field)
			},
		},
		{
			name: "inverted budget",
			body: map[string]interface{}{
				"listings": testutil.Listings(),
				"profile": map[string]interface{}{
					"userId":      "user-1",
					"budgetRange": map[string]interface{}{"min": 900000, "max": 100000},
				},
			},
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body errorBody
				decodeBody(t, rec, &body)
				assert.Equal(t, string(errors.ErrCodeInvalidRange), body.Code)
			},
		},
		{
			name:       "malformed body",
			body:       `{"listings": [`,
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var body errorBody
				decodeBody(t, rec, &body)
				assert.Equal(t, string(errors.ErrCodeInvalidInput), body.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t, nil), http.MethodPost, "/v1/search", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			tt.validateOutput(t, rec)
		})
	}
}

func TestSearch_StoreFailureIs500(t *testing.T) {
	h := newTestServer(t, func(o *Options) {
		o.Search = searchFunc(func(context.Context, *searchlistings.Input) (*searchlistings.Output, error) {
			return nil, errors.NewQueryExecutionFailedError("listing_search", fmt.Errorf("connection reset"))
		})
	})

	rec := do(t, h, http.MethodPost, "/v1/search", map[string]interface{}{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, string(errors.ErrCodeQueryExecutionFailed), body.Code)
	assert.Empty(t, body.Details)
}

func TestPanicIsRecovered(t *testing.T) {
	h := newTestServer(t, func(o *Options) {
		o.Search = searchFunc(func(context.Context, *searchlistings.Input) (*searchlistings.Output, error) {
			panic("boom")
		})
	})

	rec := do(t, h, http.MethodPost, "/v1/search", map[string]interface{}{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ==========================
// Stage Endpoints
// ==========================

func TestFilter(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/v1/listings/filter", map[string]interface{}{
		"listings": testutil.Listings(),
		"filters":  map[string]interface{}{"priceRange": map[string]interface{}{"min": 600000, "max": 900000}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out filterResponse
	decodeBody(t, rec, &out)
	assert.Equal(t, 3, out.TotalCount)
	assert.Equal(t, 2, out.FilteredCount)

	rec = do(t, h, http.MethodPost, "/v1/listings/filter", map[string]interface{}{
		"listings": testutil.Listings(),
		"filters":  map[string]interface{}{"priceRange": map[string]interface{}{"min": 900000, "max": 600000}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScore(t *testing.T) {
	loaded := ""
	h := newTestServer(t, func(o *Options) {
		o.Profiles = profileFunc(func(_ context.Context, userID string) (*models.UserProfile, bool, error) {
			loaded = userID
			p := testutil.Profile()
			return &p, false, nil
		})
	})

	t.Run("by user id", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/v1/listings/score", map[string]interface{}{
			"listings": testutil.Listings(),
			"userId":   "user-1",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out scoreResponse
		decodeBody(t, rec, &out)
		assert.Equal(t, "user-1", loaded)
		require.Len(t, out.ScoredListings, 3)
		assert.Equal(t, []int{95, 38, 50}, []int{
			out.ScoredListings[0].MatchScore,
			out.ScoredListings[1].MatchScore,
			out.ScoredListings[2].MatchScore,
		})
	})

	t.Run("no profile source", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/v1/listings/score", map[string]interface{}{"listings": testutil.Listings()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid listing", func(t *testing.T) {
		bad := testutil.Listings()
		bad[0].Price = -1
		rec := do(t, h, http.MethodPost, "/v1/listings/score", map[string]interface{}{
			"listings": bad,
			"profile":  testutil.Profile(),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorBody
		decodeBody(t, rec, &body)
		assert.Equal(t, string(errors.ErrCodeInvalidListing), body.Code)
	})
}

func TestSort(t *testing.T) {
	h := newTestServer(t, nil)
	scored := models.Unscored(testutil.Listings())

	rec := do(t, h, http.MethodPost, "/v1/listings/sort", map[string]interface{}{
		"scoredListings": scored,
		"sortBy":         "price",
		"sortOrder":      "asc",
		"limit":          2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out sortResponse
	decodeBody(t, rec, &out)
	assert.Equal(t, []string{"listing-2", "listing-1"}, ids(out.RankedListings))
	assert.Equal(t, 3, out.TotalCount)

	rec = do(t, h, http.MethodPost, "/v1/listings/sort", map[string]interface{}{
		"scoredListings": scored,
		"sortOrder":      "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilar(t *testing.T) {
	var got *findsimilarlistings.Input
	h := newTestServer(t, func(o *Options) {
		o.Similar = similarFunc(func(_ context.Context, in *findsimilarlistings.Input) (*findsimilarlistings.Output, error) {
			got = in
			if in.ListingID == "missing" {
				return nil, errors.NewListingNotFoundError(in.ListingID)
			}
			return &findsimilarlistings.Output{ListingID: in.ListingID, Similar: []models.SimilarListing{}}, nil
		})
	})

	rec := do(t, h, http.MethodGet, "/v1/listings/listing-1/similar?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "listing-1", got.ListingID)
	assert.Equal(t, 3, got.Limit)

	rec = do(t, h, http.MethodGet, "/v1/listings/missing/similar", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/listings/listing-1/similar?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Rate Limiting
// ==========================

func TestRateLimitedRoutes(t *testing.T) {
	h := newTestServer(t, func(o *Options) {
		o.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1, IdleTTL: 60}
	})

	body := map[string]interface{}{"scoredListings": []interface{}{}}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/listings/sort", body).Code)

	rec := do(t, h, http.MethodPost, "/v1/listings/sort", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// operational endpoints are not limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
}

func TestRateLimitedRoutes_ForwardedFor(t *testing.T) {
	limited := config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1, IdleTTL: 60}
	body := `{"scoredListings":[]}`

	sortFrom := func(h http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/listings/sort", strings.NewReader(body))
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("spoofed header does not reset the bucket", func(t *testing.T) {
		h := newTestServer(t, func(o *Options) { o.RateLimit = limited })
		assert.Equal(t, http.StatusOK, sortFrom(h, "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, sortFrom(h, "203.0.113.2"))
	})

	t.Run("trusted proxy keys on the forwarded client", func(t *testing.T) {
		h := newTestServer(t, func(o *Options) {
			o.RateLimit = limited
			o.TrustProxy = true
		})
		assert.Equal(t, http.StatusOK, sortFrom(h, "203.0.113.1"))
		assert.Equal(t, http.StatusOK, sortFrom(h, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, sortFrom(h, "203.0.113.1"))
	})
}
