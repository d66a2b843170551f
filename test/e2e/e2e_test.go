// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/bootstrap"
	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
	"propguard-workers/internal/testutil"
	ss "propguard-workers/internal/workers/profile/save-search"
	fsl "propguard-workers/internal/workers/search/find-similar-listings"
	sl "propguard-workers/internal/workers/search/search-listings"
)

// Runs against the docker-compose stack. Set E2E=1 to enable.
func TestFullE2E(t *testing.T) {
	if os.Getenv("E2E") == "" {
		t.Skip("E2E not set; skipping live-service test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	infra, err := bootstrap.Connect(ctx, cfg, bootstrap.ConnectOptions{Elasticsearch: true, Attempts: 3}, log)
	require.NoError(t, err, "storage connection failed")
	defer infra.Close()

	assertZeebeTopology(t, ctx, cfg)
	createTables(t, ctx, infra)
	seedListings(t, ctx, infra)

	scorer, err := bootstrap.ScorerFromConfig(cfg.Matching)
	require.NoError(t, err)

	profile := testutil.Profile()
	profile.UserID = "e2e-user"
	require.NoError(t, infra.Stores.Profiles.Save(ctx, &profile))

	t.Run("search-listings", func(t *testing.T) {
		h := sl.NewHandler(sl.NewConfig(config.GetWorkerConfig(cfg, sl.TaskType), cfg.Matching),
			matching.NewPipeline(scorer), infra.Stores.Listings, infra.Stores.Profiles, log)

		out, err := h.Execute(ctx, &sl.Input{
			UserID:  "e2e-user",
			Filters: &models.SearchFilters{Locations: []string{"Melbourne", "South Yarra", "Richmond"}},
		})
		require.NoError(t, err)
		assert.Equal(t, sl.SourceStore, out.Source)
		require.NotEmpty(t, out.Results)
		assert.Equal(t, "listing-1", out.Results[0].Listing.ID)
		assert.Equal(t, 95, out.Results[0].MatchScore)
	})

	t.Run("find-similar-listings", func(t *testing.T) {
		h := fsl.NewHandler(fsl.NewConfig(config.GetWorkerConfig(cfg, fsl.TaskType)), infra.Stores.Listings, log)

		out, err := h.Execute(ctx, &fsl.Input{ListingID: "listing-1", Limit: 2})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(out.Similar), 2)
		for _, s := range out.Similar {
			assert.NotEqual(t, "listing-1", s.Listing.ID)
		}
	})

	t.Run("save-search", func(t *testing.T) {
		h := ss.NewHandler(ss.NewConfig(config.GetWorkerConfig(cfg, ss.TaskType)), infra.Stores.SavedSearches, log)

		out, err := h.Execute(ctx, &ss.Input{
			UserID:        "e2e-user",
			Name:          "Melbourne houses",
			Filters:       &models.SearchFilters{Locations: []string{"Melbourne"}},
			AlertsEnabled: true,
		})
		require.NoError(t, err)

		saved, err := infra.Stores.SavedSearches.ByID(ctx, out.SavedSearchID)
		require.NoError(t, err)
		assert.Equal(t, "e2e-user", saved.UserID)
		assert.True(t, saved.AlertsEnabled)
	})
}

func assertZeebeTopology(t *testing.T, ctx context.Context, cfg *config.Config) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	})
	require.NoError(t, err, "zeebe client creation failed")
	defer client.Close()

	_, err = client.NewTopologyCommand().Send(ctx)
	assert.NoError(t, err, "zeebe topology request failed")
}

// ==========================
// Database setup
// ==========================

func createTables(t *testing.T, ctx context.Context, infra *bootstrap.Infra) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			address TEXT NOT NULL,
			description TEXT,
			price DOUBLE PRECISION NOT NULL,
			bedrooms INT NOT NULL,
			bathrooms INT NOT NULL,
			floor_area DOUBLE PRECISION NOT NULL,
			category TEXT NOT NULL,
			features TEXT[] NOT NULL DEFAULT '{}',
			city TEXT NOT NULL,
			region TEXT,
			postcode TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			risk_score DOUBLE PRECISION,
			investment_potential DOUBLE PRECISION,
			listed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT,
			email TEXT,
			phone TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			preferences JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS saved_searches (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			criteria JSONB,
			filters JSONB,
			alerts_enabled BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			saved_search_id TEXT,
			type TEXT NOT NULL,
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			payload JSONB,
			sent_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		_, err := infra.Postgres.GetDB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func seedListings(t *testing.T, ctx context.Context, infra *bootstrap.Infra) {
	err := infra.Postgres.WithTx(ctx, func(tx *sql.Tx) error {
		for _, l := range testutil.Listings() {
			var lat, lng, risk interface{}
			if c := l.Location.Coordinates; c != nil {
				lat, lng = c.Lat, c.Lng
			}
			if l.RiskScore != nil {
				risk = *l.RiskScore
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO listings (id, address, description, price, bedrooms, bathrooms, floor_area,
					category, features, city, region, postcode, latitude, longitude, risk_score, listed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				ON CONFLICT (id) DO NOTHING`,
				l.ID, l.Address, l.Description, l.Price, l.Bedrooms, l.Bathrooms, l.FloorArea,
				string(l.Category), pq.Array(l.Features), l.Location.City, l.Location.Region,
				l.Location.Postcode, lat, lng, risk, l.ListedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}
