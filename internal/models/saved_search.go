// internal/models/saved_search.go
package models

import "time"

type SavedSearch struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	Name          string         `json:"name"`
	Criteria      SearchCriteria `json:"criteria"`
	Filters       SearchFilters  `json:"filters"`
	AlertsEnabled bool           `json:"alertsEnabled"`
	CreatedAt     time.Time      `json:"createdAt"`
}
