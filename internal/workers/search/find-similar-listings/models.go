package findsimilarlistings

import (
	"context"

	"propguard-workers/internal/models"
)

// Input names the reference listing either by id or inline. Candidates are
// loaded from the store when not supplied.
type Input struct {
	ListingID  string           `json:"listingId,omitempty"`
	Listing    *models.Listing  `json:"listing,omitempty"`
	Candidates []models.Listing `json:"candidates,omitempty"`
	Limit      int              `json:"limit,omitempty"`
}

type Output struct {
	ListingID  string                  `json:"listingId"`
	Similar    []models.SimilarListing `json:"similar"`
	TotalCount int                     `json:"totalCount"`
}

type ListingReader interface {
	ByID(ctx context.Context, id string) (*models.Listing, error)
	ByCity(ctx context.Context, city string, limit int) ([]models.Listing, error)
	Recent(ctx context.Context, limit int) ([]models.Listing, error)
}
