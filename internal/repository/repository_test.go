package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/common/cache"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/models"
)

// ==========================
// Test Helpers
// ==========================

var listingCols = []string{
	"id", "address", "description", "price", "bedrooms", "bathrooms", "floor_area",
	"category", "features", "city", "region", "postcode", "latitude", "longitude",
	"risk_score", "investment_potential", "listed_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func listingRows() *sqlmock.Rows {
	listed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(listingCols).
		AddRow("listing-1", "12 Smith St", "Family home", 850000.0, 4, 2, 180.0,
			"house", "{Garage,Garden}", "Melbourne", "VIC", "3000", -37.81, 144.96,
			0.3, 0.8, listed).
		AddRow("listing-2", "5/2 Chapel St", nil, 620000.0, 2, 1, 85.0,
			"condo", "{}", "South Yarra", nil, nil, nil, nil,
			nil, nil, nil)
}

// ==========================
// Listings
// ==========================

func TestListingStore_ByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM listings WHERE id = ANY\(\$1\) ORDER BY id`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(listingRows())

	got, err := NewListingStore(db).ByIDs(context.Background(), []string{"listing-1", "listing-2"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, models.CategoryHouse, first.Category)
	assert.Equal(t, []string{"Garage", "Garden"}, first.Features)
	require.NotNil(t, first.Location.Coordinates)
	assert.Equal(t, -37.81, first.Location.Coordinates.Lat)
	require.NotNil(t, first.RiskScore)
	assert.Equal(t, 0.3, *first.RiskScore)
	require.NotNil(t, first.ListedAt)

	second := got[1]
	assert.Equal(t, models.CategoryApartment, second.Category, "condo reads as apartment")
	assert.Empty(t, second.Description)
	assert.Equal(t, []string{}, second.Features)
	assert.Nil(t, second.Location.Coordinates)
	assert.Nil(t, second.RiskScore)
	assert.Nil(t, second.ListedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingStore_ByIDs_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	got, err := NewListingStore(db).ByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingStore_ByID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM listings WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(listingCols))

	_, err := NewListingStore(db).ByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingStore_Search(t *testing.T) {
	max := 900000.0
	tests := []struct {
		name    string
		filters models.SearchFilters
		pattern string
		args    []driver.Value
	}{
		{
			name:    "no filters",
			filters: models.SearchFilters{},
			pattern: `FROM listings ORDER BY id LIMIT \$1`,
			args:    []driver.Value{50},
		},
		{
			name: "price and bedrooms",
			filters: models.SearchFilters{
				PriceRange: &models.FloatRange{Min: 500000, Max: &max},
				Bedrooms:   &models.IntRange{Min: 3},
			},
			pattern: `WHERE price >= \$1 AND price <= \$2 AND bedrooms >= \$3 ORDER BY id LIMIT \$4`,
			args:    []driver.Value{500000.0, 900000.0, 3, 50},
		},
		{
			name:    "all sentinel adds no clause",
			filters: models.SearchFilters{PropertyTypes: []string{"all"}, Locations: []string{"Richmond"}},
			pattern: `WHERE EXISTS \(SELECT 1 FROM unnest\(\$1::text\[\]\).* ORDER BY id LIMIT \$2`,
			args:    []driver.Value{sqlmock.AnyArg(), 50},
		},
		{
			name:    "location matches city or region by substring",
			filters: models.SearchFilters{Locations: []string{"Yarra", " VIC "}},
			pattern: `(?s)position\(loc\.v IN lower\(btrim\(city\)\)\) > 0\s+OR position\(loc\.v IN lower\(btrim\(coalesce\(region, ''\)\)\)\) > 0`,
			args:    []driver.Value{"{\"yarra\",\"vic\"}", 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery(tt.pattern).WithArgs(tt.args...).WillReturnRows(listingRows())

			got, err := NewListingStore(db).Search(context.Background(), tt.filters, 50)
			require.NoError(t, err)
			assert.Len(t, got, 2)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListingStore_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`ORDER BY listed_at DESC NULLS LAST`).WillReturnError(errors.New("connection reset"))

	_, err := NewListingStore(db).Recent(context.Background(), 10)
	assert.EqualError(t, err, "connection reset")
}

// ==========================
// Profiles
// ==========================

func newProfileStore(t *testing.T) (*ProfileStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock := newMockDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(rdb, "profile:", 5*time.Minute)
	return NewProfileStore(db, store, logger.NewTestLogger(t)), mock, mr
}

func TestProfileStore_MissPopulatesCache(t *testing.T) {
	s, mock, mr := newProfileStore(t)
	mock.ExpectQuery(`SELECT preferences FROM user_profiles WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"preferences"}).
			AddRow([]byte(`{"budgetRange":{"min":600000,"max":900000},"riskTolerance":"low"}`)))

	p, err := s.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, 900000.0, p.Budget.Max)

	assert.True(t, mr.Exists("profile:user-1"))
	assert.Equal(t, 5*time.Minute, mr.TTL("profile:user-1"))

	// second read is served from Redis; no further query is expected
	p, err = s.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, p.RiskTolerance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_LoadDefault(t *testing.T) {
	s, mock, mr := newProfileStore(t)
	mock.ExpectQuery(`FROM user_profiles`).
		WithArgs("new-user").
		WillReturnRows(sqlmock.NewRows([]string{"preferences"}))

	p, isDefault, err := s.Load(context.Background(), "new-user")
	require.NoError(t, err)
	assert.True(t, isDefault)
	assert.Equal(t, "new-user", p.UserID)
	assert.Equal(t, models.DefaultProfile("new-user").Budget, p.Budget)
	assert.False(t, mr.Exists("profile:new-user"), "defaults are not cached")
}

func TestProfileStore_Save(t *testing.T) {
	s, mock, mr := newProfileStore(t)
	p := models.DefaultProfile("user-2")
	p.Budget.Max = 1200000

	mock.ExpectExec(`INSERT INTO user_profiles .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs("user-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Save(context.Background(), p))
	assert.True(t, mr.Exists("profile:user-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_CacheDownFallsBackToPostgres(t *testing.T) {
	s, mock, mr := newProfileStore(t)
	mr.Close()

	mock.ExpectQuery(`FROM user_profiles`).
		WithArgs("user-3").
		WillReturnRows(sqlmock.NewRows([]string{"preferences"}).AddRow([]byte(`{"riskTolerance":"high"}`)))

	p, err := s.Get(context.Background(), "user-3")
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, p.RiskTolerance)
}

func TestProfileStore_WithoutCache(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProfileStore(db, nil, logger.NewNoOpLogger())
	mock.ExpectQuery(`FROM user_profiles`).WillReturnError(errors.New("boom"))

	_, _, err := s.Load(context.Background(), "user-4")
	assert.EqualError(t, err, "boom")
}

// ==========================
// Saved searches and contacts
// ==========================

func TestSavedSearchStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	st := NewSavedSearchStore(db)
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	mock.ExpectExec(`INSERT INTO saved_searches`).
		WithArgs(sqlmock.AnyArg(), "user-1", "Richmond townhouses", sqlmock.AnyArg(), sqlmock.AnyArg(), true, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &models.SavedSearch{
		UserID:        "user-1",
		Name:          "Richmond townhouses",
		Criteria:      models.SearchCriteria{Location: "Richmond", PropertyType: "townhouse"},
		AlertsEnabled: true,
	}
	require.NoError(t, st.Create(context.Background(), s))
	assert.Len(t, s.ID, 36)
	assert.Equal(t, fixed, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavedSearchStore_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM saved_searches WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "criteria", "filters", "alerts_enabled", "created_at"}).
			AddRow("s-1", "user-1", "Richmond", []byte(`{"location":"Richmond"}`), []byte(`{}`), true, created))

	got, err := NewSavedSearchStore(db).ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Richmond", got[0].Criteria.Location)
}

func TestSavedSearchStore_ByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM saved_searches WHERE id = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "criteria", "filters", "alerts_enabled", "created_at"}))

	_, err := NewSavedSearchStore(db).ByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactStore(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, name, email, phone FROM users WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone"}).
			AddRow("user-1", "Sam", "sam@example.com", nil))

	c, err := NewContactStore(db).ByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", c.Email)
	assert.Empty(t, c.Phone)

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("n-1", "user-1", nil, "match_alert", "email", "sent", sqlmock.AnyArg(), "2024-05-01T09:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))
	err = NewContactStore(db).RecordNotification(context.Background(), &models.Notification{
		ID: "n-1", UserID: "user-1", Type: "match_alert", Channel: "email", Status: "sent",
		Payload: map[string]interface{}{"matches": 2}, SentAt: "2024-05-01T09:00:00Z",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
