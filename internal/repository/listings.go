// internal/repository/listings.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"propguard-workers/internal/models"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

const listingColumns = `id, address, description, price, bedrooms, bathrooms, floor_area,
	category, features, city, region, postcode, latitude, longitude,
	risk_score, investment_potential, listed_at`

// ListingStore reads listings from Postgres. Results are candidates only: the
// matching pipeline still applies the exact filters.
type ListingStore struct {
	db *sql.DB
}

func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

func (s *ListingStore) ByID(ctx context.Context, id string) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListingStore) ByIDs(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}
	return s.query(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
}

// Recent returns the newest listings first; undated rows come last.
func (s *ListingStore) Recent(ctx context.Context, limit int) ([]models.Listing, error) {
	return s.query(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY listed_at DESC NULLS LAST, id LIMIT $1`, limit)
}

func (s *ListingStore) ByCity(ctx context.Context, city string, limit int) ([]models.Listing, error) {
	return s.query(ctx, `SELECT `+listingColumns+` FROM listings WHERE lower(city) = lower($1) ORDER BY id LIMIT $2`,
		strings.TrimSpace(city), limit)
}

func (s *ListingStore) InBounds(ctx context.Context, b models.GeoBounds, limit int) ([]models.Listing, error) {
	return s.query(ctx, `SELECT `+listingColumns+` FROM listings
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		ORDER BY id LIMIT $5`, b.South, b.North, b.West, b.East, limit)
}

// Search pushes part of f down to Postgres: price, bedrooms, category and
// location. Location is a substring match on city or region, same as the
// in-memory filter, so the pushdown never drops a listing the pipeline keeps.
func (s *ListingStore) Search(ctx context.Context, f models.SearchFilters, limit int) ([]models.Listing, error) {
	where, args := searchClause(f)
	q := `SELECT ` + listingColumns + ` FROM listings`
	if where != "" {
		q += ` WHERE ` + where
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))
	return s.query(ctx, q, args...)
}

func searchClause(f models.SearchFilters) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PriceRange != nil {
		if f.PriceRange.Min > 0 {
			add("price >= $%d", f.PriceRange.Min)
		}
		if f.PriceRange.Max != nil {
			add("price <= $%d", *f.PriceRange.Max)
		}
	}
	if f.Bedrooms != nil {
		if f.Bedrooms.Min > 0 {
			add("bedrooms >= $%d", f.Bedrooms.Min)
		}
		if f.Bedrooms.Max != nil {
			add("bedrooms <= $%d", *f.Bedrooms.Max)
		}
	}
	if types := models.ActiveAllowlist(f.PropertyTypes); types != nil {
		cats := make([]string, 0, len(types))
		for _, t := range types {
			if c, ok := models.ParseCategory(t); ok {
				cats = append(cats, string(c))
			}
		}
		add("category = ANY($%d)", pq.Array(cats))
	}
	if locs := models.ActiveAllowlist(f.Locations); locs != nil {
		add(`EXISTS (SELECT 1 FROM unnest($%d::text[]) AS loc(v)
			WHERE position(loc.v IN lower(btrim(city))) > 0
			OR position(loc.v IN lower(btrim(coalesce(region, '')))) > 0)`, pq.Array(locs))
	}
	return strings.Join(conds, " AND "), args
}

func (s *ListingStore) query(ctx context.Context, q string, args ...interface{}) ([]models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row scanner) (*models.Listing, error) {
	var (
		l                models.Listing
		description      sql.NullString
		category         string
		features         []string
		region, postcode sql.NullString
		lat, lng         sql.NullFloat64
		risk, investment sql.NullFloat64
		listedAt         sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.Address, &description, &l.Price, &l.Bedrooms, &l.Bathrooms, &l.FloorArea,
		&category, pq.Array(&features), &l.Location.City, &region, &postcode, &lat, &lng,
		&risk, &investment, &listedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Description = description.String
	if c, ok := models.ParseCategory(category); ok {
		l.Category = c
	} else {
		l.Category = models.PropertyCategory(category)
	}
	if features == nil {
		features = []string{}
	}
	l.Features = features
	l.Location.Region = region.String
	l.Location.Postcode = postcode.String
	if lat.Valid && lng.Valid {
		l.Location.Coordinates = &models.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if risk.Valid {
		l.RiskScore = &risk.Float64
	}
	if investment.Valid {
		l.InvestmentPotential = &investment.Float64
	}
	if listedAt.Valid {
		t := listedAt.Time.UTC()
		l.ListedAt = &t
	}
	return &l, nil
}
