// internal/workers/data-access/query-listings/queries/listings.go
package queries

import (
	"context"
	"fmt"
	"strings"

	"propguard-workers/internal/models"
)

func ListingByID(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error) {
	if strings.TrimSpace(p.ListingID) == "" {
		return nil, fmt.Errorf("%w: listingId", ErrMissingParam)
	}
	l, err := store.ByID(ctx, p.ListingID)
	if err != nil {
		return nil, err
	}
	return []models.Listing{*l}, nil
}

func ListingsByIDs(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error) {
	if len(p.ListingIDs) == 0 {
		return nil, fmt.Errorf("%w: listingIds", ErrMissingParam)
	}
	return store.ByIDs(ctx, p.ListingIDs)
}

func ListingSearch(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error) {
	var f models.SearchFilters
	if p.Filters != nil {
		if err := p.Filters.Validate(); err != nil {
			return nil, err
		}
		f = *p.Filters
	}
	return store.Search(ctx, f, p.Limit)
}

func RecentListings(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error) {
	return store.Recent(ctx, p.Limit)
}

func ListingsByCity(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error) {
	if strings.TrimSpace(p.City) == "" {
		return nil, fmt.Errorf("%w: city", ErrMissingParam)
	}
	return store.ByCity(ctx, p.City, p.Limit)
}

func ListingsInBounds(ctx context.Context, store ListingQuerier, p Params) ([]models.Listing, error) {
	if p.Bounds == nil {
		return nil, fmt.Errorf("%w: bounds", ErrMissingParam)
	}
	b := *p.Bounds
	f := models.SearchFilters{Bounds: &b}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return store.InBounds(ctx, b, p.Limit)
}
