package filterlistings

import "propguard-workers/internal/models"

// Input carries either structured filters, free-form criteria, or both.
// Criteria are applied first.
type Input struct {
	Listings []models.Listing       `json:"listings"`
	Filters  *models.SearchFilters  `json:"filters,omitempty"`
	Criteria *models.SearchCriteria `json:"criteria,omitempty"`
}

type Output struct {
	Listings      []models.Listing `json:"listings"`
	TotalCount    int              `json:"totalCount"`
	FilteredCount int              `json:"filteredCount"`
}
