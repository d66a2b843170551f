// internal/workers/data-access/query-listings/models.go
package querylistings

import "propguard-workers/internal/models"

type Input struct {
	QueryType  string                `json:"queryType"`
	ListingID  string                `json:"listingId,omitempty"`
	ListingIDs []string              `json:"listingIds,omitempty"`
	City       string                `json:"city,omitempty"`
	Bounds     *models.GeoBounds     `json:"bounds,omitempty"`
	Filters    *models.SearchFilters `json:"filters,omitempty"`
	Limit      int                   `json:"limit,omitempty"`
}

type Output struct {
	Listings           []models.Listing `json:"listings"`
	RowCount           int              `json:"rowCount"`
	QueryExecutionTime int64            `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType
