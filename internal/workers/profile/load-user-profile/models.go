package loaduserprofile

import (
	"context"

	"propguard-workers/internal/models"
)

type Input struct {
	UserID string `json:"userId"`
	// SkipSavedSearches leaves savedSearches empty.
	SkipSavedSearches bool `json:"skipSavedSearches,omitempty"`
}

type Output struct {
	Profile       *models.UserProfile  `json:"profile"`
	IsDefault     bool                 `json:"isDefault"`
	SavedSearches []models.SavedSearch `json:"savedSearches"`
}

type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*models.UserProfile, bool, error)
}

type SavedSearchLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.SavedSearch, error)
}
