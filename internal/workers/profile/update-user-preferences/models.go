package updateuserpreferences

import (
	"context"

	"propguard-workers/internal/models"
)

type Input struct {
	UserID      string                  `json:"userId"`
	Preferences models.PreferenceUpdate `json:"preferences"`
}

type Output struct {
	Profile *models.UserProfile `json:"profile"`
	// Created is true when the user had no stored preferences before.
	Created bool `json:"created"`
}

type ProfileStore interface {
	Load(ctx context.Context, userID string) (*models.UserProfile, bool, error)
	Save(ctx context.Context, p *models.UserProfile) error
}
