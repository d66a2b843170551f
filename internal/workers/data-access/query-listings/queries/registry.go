// internal/workers/data-access/query-listings/queries/registry.go
package queries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propguard-workers/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// ListingQuerier is the read side of the listing store.
type ListingQuerier interface {
	ByID(ctx context.Context, id string) (*models.Listing, error)
	ByIDs(ctx context.Context, ids []string) ([]models.Listing, error)
	Recent(ctx context.Context, limit int) ([]models.Listing, error)
	ByCity(ctx context.Context, city string, limit int) ([]models.Listing, error)
	InBounds(ctx context.Context, b models.GeoBounds, limit int) ([]models.Listing, error)
	Search(ctx context.Context, f models.SearchFilters, limit int) ([]models.Listing, error)
}

type Params struct {
	ListingID  string
	ListingIDs []string
	City       string
	Bounds     *models.GeoBounds
	Filters    *models.SearchFilters
	Limit      int
}

type QueryFunc func(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeListingByID:     ListingByID,
	models.QueryTypeListingsByIDs:   ListingsByIDs,
	models.QueryTypeListingSearch:   ListingSearch,
	models.QueryTypeRecentListings:  RecentListings,
	models.QueryTypeListingsByCity:  ListingsByCity,
	models.QueryTypeListingsInBound: ListingsInBounds,
}

// Execute returns the rows and the execution time in milliseconds.
func Execute(ctx context.Context, store ListingQuerier, queryType models.QueryType, p Params) ([]models.Listing, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	start := time.Now()
	listings, err := fn(ctx, store, p)
	return listings, time.Since(start).Milliseconds(), err
}
