// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
	findsimilarlistings "propguard-workers/internal/workers/search/find-similar-listings"
	searchlistings "propguard-workers/internal/workers/search/search-listings"
)

type filterRequest struct {
	Listings []models.Listing       `json:"listings"`
	Criteria *models.SearchCriteria `json:"criteria,omitempty"`
	Filters  *models.SearchFilters  `json:"filters,omitempty"`
}

type filterResponse struct {
	Listings      []models.Listing `json:"listings"`
	TotalCount    int              `json:"totalCount"`
	FilteredCount int              `json:"filteredCount"`
}

type scoreRequest struct {
	Listings []models.Listing    `json:"listings"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
	UserID   string              `json:"userId,omitempty"`
}

type scoreResponse struct {
	ScoredListings []models.ScoredListing `json:"scoredListings"`
	DefaultProfile bool                   `json:"defaultProfile"`
}

type sortRequest struct {
	ScoredListings []models.ScoredListing `json:"scoredListings"`
	SortBy         models.SortKey         `json:"sortBy,omitempty"`
	SortOrder      models.SortOrder       `json:"sortOrder,omitempty"`
	Limit          int                    `json:"limit,omitempty"`
}

type sortResponse struct {
	RankedListings []models.ScoredListing `json:"rankedListings"`
	TotalCount     int                    `json:"totalCount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			s.logger.Warn("not ready", map[string]interface{}{"error": err})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in searchlistings.Input
	if !s.decode(w, r, &in) {
		return
	}
	out, err := s.opts.Search.Execute(r.Context(), &in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.opts.Observability.RecordSearchResults(r.Context(), out.Source, out.ReturnedCount)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var in filterRequest
	if !s.decode(w, r, &in) {
		return
	}
	if err := validateListings(in.Listings); err != nil {
		writeError(w, s.logger, err)
		return
	}

	filtered := in.Listings
	var err error
	if in.Criteria != nil {
		if filtered, err = matching.MatchCriteria(filtered, *in.Criteria); err != nil {
			writeError(w, s.logger, err)
			return
		}
	}
	if in.Filters != nil {
		if filtered, err = matching.FilterListings(filtered, *in.Filters); err != nil {
			writeError(w, s.logger, err)
			return
		}
	}
	if filtered == nil {
		filtered = []models.Listing{}
	}
	writeJSON(w, http.StatusOK, filterResponse{
		Listings:      filtered,
		TotalCount:    len(in.Listings),
		FilteredCount: len(filtered),
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var in scoreRequest
	if !s.decode(w, r, &in) {
		return
	}

	profile, isDefault, err := s.resolveProfile(r.Context(), in.Profile, in.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := profile.Validate(); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := validateListings(in.Listings); err != nil {
		writeError(w, s.logger, err)
		return
	}

	scored := s.scorer.ScoreAll(in.Listings, *profile)
	writeJSON(w, http.StatusOK, scoreResponse{ScoredListings: scored, DefaultProfile: isDefault})
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var in sortRequest
	if !s.decode(w, r, &in) {
		return
	}
	if in.Limit < 0 {
		writeError(w, s.logger, models.NewValidationError(models.KindInvalidRange, "limit", "limit must be non-negative"))
		return
	}

	ranked, err := matching.SortListings(in.ScoredListings, in.SortBy, in.SortOrder)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if in.Limit > 0 && len(ranked) > in.Limit {
		ranked = ranked[:in.Limit]
	}
	writeJSON(w, http.StatusOK, sortResponse{RankedListings: ranked, TotalCount: len(in.ScoredListings)})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	in := findsimilarlistings.Input{ListingID: mux.Vars(r)["id"]}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, s.logger, models.NewValidationError(models.KindInvalidRange, "limit", "limit must be a non-negative integer"))
			return
		}
		in.Limit = n
	}

	out, err := s.opts.Similar.Execute(r.Context(), &in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resolveProfile(ctx context.Context, inline *models.UserProfile, userID string) (*models.UserProfile, bool, error) {
	if inline != nil {
		return inline, false, nil
	}
	if userID == "" {
		return nil, false, errors.NewInvalidInputError("profile or userId is required")
	}
	if s.opts.Profiles == nil {
		return nil, false, errors.NewProfileNotFoundError(userID)
	}
	p, isDefault, err := s.opts.Profiles.Load(ctx, userID)
	if err != nil {
		return nil, false, errors.NewQueryExecutionFailedError("user_profile", err)
	}
	return p, isDefault, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, s.logger, errors.NewInvalidInputError(fmt.Sprintf("decode body: %v", err)))
		return false
	}
	return true
}

func validateListings(listings []models.Listing) error {
	for i := range listings {
		if err := listings[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
