package scorelistings

import (
	"context"

	"propguard-workers/internal/models"
)

// Input scores listings against an inline profile, or the stored profile of
// UserID when Profile is absent.
type Input struct {
	Listings []models.Listing    `json:"listings"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
	UserID   string              `json:"userId,omitempty"`
}

type Output struct {
	ScoredListings []models.ScoredListing `json:"scoredListings"`
	ExcludedCount  int                    `json:"excludedCount"`
	AverageScore   float64                `json:"averageScore"`
	ProfileSource  string                 `json:"profileSource"`
}

const (
	ProfileSourceInput   = "input"
	ProfileSourceStored  = "stored"
	ProfileSourceDefault = "default"
)

// ProfileLoader returns a user's profile; the bool is true when the default
// profile stood in for a missing one.
type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*models.UserProfile, bool, error)
}
