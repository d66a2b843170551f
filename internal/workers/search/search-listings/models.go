package searchlistings

import (
	"context"

	"propguard-workers/internal/models"
)

// Input mirrors matching.SearchRequest. When Listings is absent, candidates
// are loaded from the listing store using the filters.
type Input struct {
	Listings  []models.Listing       `json:"listings,omitempty"`
	Criteria  *models.SearchCriteria `json:"criteria,omitempty"`
	Filters   *models.SearchFilters  `json:"filters,omitempty"`
	Profile   *models.UserProfile    `json:"profile,omitempty"`
	UserID    string                 `json:"userId,omitempty"`
	SortBy    models.SortKey         `json:"sortBy,omitempty"`
	SortOrder models.SortOrder       `json:"sortOrder,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// Output reports CandidatesTruncated when the store held more matching rows
// than the candidate cap; results then rank only the first rows by id.
type Output struct {
	Results             []models.ScoredListing `json:"results"`
	CandidateCount      int                    `json:"candidateCount"`
	MatchedCount        int                    `json:"matchedCount"`
	ExcludedCount       int                    `json:"excludedCount"`
	ReturnedCount       int                    `json:"returnedCount"`
	CandidatesTruncated bool                   `json:"candidatesTruncated"`
	SortBy              models.SortKey         `json:"sortBy"`
	SortOrder           models.SortOrder       `json:"sortOrder"`
	Source              string                 `json:"source"`
}

const (
	SourceInput = "input"
	SourceStore = "store"
)

type ListingSource interface {
	Search(ctx context.Context, filters models.SearchFilters, limit int) ([]models.Listing, error)
}

type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*models.UserProfile, bool, error)
}
