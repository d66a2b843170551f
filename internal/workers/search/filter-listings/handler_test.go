package filterlistings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
	"propguard-workers/internal/testutil"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, logger.NewTestLogger(t))
}

func listingIDs(listings []models.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "no filters keeps everything",
			input: &Input{Listings: testutil.Listings()},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, 3, output.TotalCount)
				assert.Equal(t, 3, output.FilteredCount)
				assert.Equal(t, []string{"listing-1", "listing-2", "listing-3"}, listingIDs(output.Listings))
			},
		},
		{
			name: "price filter",
			input: &Input{
				Listings: testutil.Listings(),
				Filters:  &models.SearchFilters{PriceRange: &models.FloatRange{Min: 600000, Max: testutil.FloatPtr(900000)}},
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []string{"listing-1", "listing-2"}, listingIDs(output.Listings))
				assert.Equal(t, 2, output.FilteredCount)
			},
		},
		{
			name: "criteria then filters",
			input: &Input{
				Listings: testutil.Listings(),
				Criteria: &models.SearchCriteria{Bedrooms: testutil.IntPtr(3)},
				Filters:  &models.SearchFilters{Features: []string{"pool"}},
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, []string{"listing-3"}, listingIDs(output.Listings))
			},
		},
		{
			name: "nothing matches",
			input: &Input{
				Listings: testutil.Listings(),
				Filters:  &models.SearchFilters{Locations: []string{"Geelong"}},
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.NotNil(t, output.Listings)
				assert.Empty(t, output.Listings)
				assert.Equal(t, 3, output.TotalCount)
			},
		},
		{
			name:  "no listings",
			input: &Input{},
			validateOutput: func(t *testing.T, output *Output) {
				assert.NotNil(t, output.Listings)
				assert.Zero(t, output.TotalCount)
			},
		},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, output)
		})
	}
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
		want  error
	}{
		{
			name: "inverted price range",
			input: &Input{
				Listings: testutil.Listings(),
				Filters:  &models.SearchFilters{PriceRange: &models.FloatRange{Min: 900000, Max: testutil.FloatPtr(100)}},
			},
			want: models.ErrInvalidRange,
		},
		{
			name: "unknown criteria property type",
			input: &Input{
				Listings: testutil.Listings(),
				Criteria: &models.SearchCriteria{PropertyType: "castle"},
			},
			want: models.ErrInvalidProfile,
		},
		{
			name: "invalid listing",
			input: &Input{
				Listings: []models.Listing{{ID: "bad", Price: -1, Category: models.CategoryHouse}},
				Filters:  &models.SearchFilters{},
			},
			want: models.ErrInvalidListing,
		},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, NewConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 2*time.Second, NewConfig(config.WorkerConfig{Timeout: 2000}).Timeout)
}
