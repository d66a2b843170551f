package savesearch

import (
	"context"
	"time"

	"propguard-workers/internal/models"
)

type Input struct {
	UserID        string                 `json:"userId"`
	Name          string                 `json:"name"`
	Criteria      *models.SearchCriteria `json:"criteria,omitempty"`
	Filters       *models.SearchFilters  `json:"filters,omitempty"`
	AlertsEnabled bool                   `json:"alertsEnabled"`
}

type Output struct {
	SavedSearchID string    `json:"savedSearchId"`
	CreatedAt     time.Time `json:"createdAt"`
}

type SavedSearchCreator interface {
	Create(ctx context.Context, s *models.SavedSearch) error
}
