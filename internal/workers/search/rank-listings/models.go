package ranklistings

import "propguard-workers/internal/models"

type Input struct {
	ScoredListings []models.ScoredListing `json:"scoredListings"`
	SortBy         models.SortKey         `json:"sortBy,omitempty"`
	SortOrder      models.SortOrder       `json:"sortOrder,omitempty"`
	MaxItems       int                    `json:"maxItems,omitempty"`
}

type Output struct {
	RankedListings []models.ScoredListing `json:"rankedListings"`
	TotalCount     int                    `json:"totalCount"`
	ReturnedCount  int                    `json:"returnedCount"`
	SortBy         models.SortKey         `json:"sortBy"`
	SortOrder      models.SortOrder       `json:"sortOrder"`
}
