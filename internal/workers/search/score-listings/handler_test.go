package scorelistings

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/common/errors"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
	"propguard-workers/internal/testutil"
)

// ==========================
// Mock Profile Loader
// ==========================

type MockProfileLoader struct {
	mock.Mock
}

func (m *MockProfileLoader) Load(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.UserProfile), args.Bool(1), args.Error(2)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, profiles ProfileLoader) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second, IncludeExcluded: true}, nil, profiles, logger.NewTestLogger(t))
}

func scoresByID(scored []models.ScoredListing) map[string]int {
	out := make(map[string]int, len(scored))
	for _, s := range scored {
		out[s.ID] = s.MatchScore
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	profile := testutil.Profile()
	withBreaker := testutil.Profile()
	withBreaker.DealBreakers = []string{"pool"}

	tests := []struct {
		name           string
		input          *Input
		setupMock      func(m *MockProfileLoader)
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "inline profile",
			input: &Input{Listings: testutil.Listings(), Profile: &profile},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, ProfileSourceInput, output.ProfileSource)
				assert.Equal(t, map[string]int{"listing-1": 95, "listing-2": 38, "listing-3": 50}, scoresByID(output.ScoredListings))
				assert.Equal(t, "listing-1", output.ScoredListings[0].ID, "input order is kept")
				assert.Equal(t, 61.0, output.AverageScore)
				assert.Zero(t, output.ExcludedCount)
			},
		},
		{
			name:  "stored profile",
			input: &Input{Listings: testutil.Listings(), UserID: "user-1"},
			setupMock: func(m *MockProfileLoader) {
				m.On("Load", mock.Anything, "user-1").Return(&profile, false, nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, ProfileSourceStored, output.ProfileSource)
				assert.Equal(t, 95, output.ScoredListings[0].MatchScore)
			},
		},
		{
			name:  "default profile for new user",
			input: &Input{Listings: testutil.Listings(), UserID: "new-user"},
			setupMock: func(m *MockProfileLoader) {
				m.On("Load", mock.Anything, "new-user").Return(models.DefaultProfile("new-user"), true, nil)
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, ProfileSourceDefault, output.ProfileSource)
				assert.Len(t, output.ScoredListings, 3)
			},
		},
		{
			name:  "deal-breaker scores zero",
			input: &Input{Listings: testutil.Listings(), Profile: &withBreaker},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 1, output.ExcludedCount)
				excluded := output.ScoredListings[2]
				assert.Equal(t, "listing-3", excluded.ID)
				assert.True(t, excluded.Excluded)
				assert.Zero(t, excluded.MatchScore)
				assert.Equal(t, "has deal-breaker: pool", excluded.ExclusionReason)
				assert.Equal(t, 66.5, output.AverageScore)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockProfileLoader)
			if tt.setupMock != nil {
				tt.setupMock(m)
			}
			output, err := createTestHandler(t, m).Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, output)
			m.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_DropsExcludedWhenConfigured(t *testing.T) {
	profile := testutil.Profile()
	profile.DealBreakers = []string{"pool"}

	h := NewHandler(&Config{Timeout: time.Second}, nil, nil, logger.NewNoOpLogger())
	output, err := h.Execute(context.Background(), &Input{Listings: testutil.Listings(), Profile: &profile})
	require.NoError(t, err)
	assert.Len(t, output.ScoredListings, 2)
	assert.Equal(t, 1, output.ExcludedCount)
}

func TestHandler_Execute_CustomWeights(t *testing.T) {
	profile := testutil.Profile()
	scorer := matching.NewScorer(matching.Weights{Budget: 1}, nil)
	h := NewHandler(&Config{Timeout: time.Second}, scorer, nil, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), &Input{Listings: testutil.Listings(), Profile: &profile})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"listing-1": 100, "listing-2": 100, "listing-3": 75}, scoresByID(output.ScoredListings))
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	badProfile := testutil.Profile()
	badProfile.Budget = models.BudgetRange{Min: 2, Max: 1}

	tests := []struct {
		name      string
		input     *Input
		setupMock func(m *MockProfileLoader)
		wantCode  errors.ErrorCode
	}{
		{
			name:     "no profile and no user",
			input:    &Input{Listings: testutil.Listings()},
			wantCode: errors.ErrCodeInvalidProfile,
		},
		{
			name:     "inverted budget",
			input:    &Input{Listings: testutil.Listings(), Profile: &badProfile},
			wantCode: errors.ErrCodeInvalidRange,
		},
		{
			name:  "profile store down",
			input: &Input{Listings: testutil.Listings(), UserID: "user-1"},
			setupMock: func(m *MockProfileLoader) {
				m.On("Load", mock.Anything, "user-1").Return(nil, false, stderrors.New("connection refused"))
			},
			wantCode: errors.ErrCodeQueryExecutionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockProfileLoader)
			if tt.setupMock != nil {
				tt.setupMock(m)
			}
			_, err := createTestHandler(t, m).Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.Normalize(err).Code)
		})
	}
}
