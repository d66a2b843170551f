// internal/workers/data-access/query-listing-index/models.go
package querylistingindex

import "propguard-workers/internal/models"

type Input struct {
	IndexName  string                `json:"indexName,omitempty"`
	QueryType  string                `json:"queryType"`
	Filters    *models.SearchFilters `json:"filters,omitempty"`
	ListingID  string                `json:"listingId,omitempty"`
	Pagination Pagination            `json:"pagination"`
}

type Pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type Output struct {
	Listings  []models.Listing `json:"listings"`
	TotalHits int64            `json:"totalHits"`
	MaxScore  float64          `json:"maxScore"`
	Took      int64            `json:"took"` // milliseconds
}
