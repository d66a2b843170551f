package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/database"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/testutil"
)

func TestScorerFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		mc      config.MatchingConfig
		wantErr string
	}{
		{
			name: "weights are normalised",
			mc: config.MatchingConfig{
				Weights:     config.WeightsConfig{Budget: 3, Location: 2.5, Feature: 2, PropertyType: 1.5, Risk: 1},
				RiskTargets: map[string]float64{"Low": 0.1},
			},
		},
		{
			name:    "zero weights",
			mc:      config.MatchingConfig{},
			wantErr: "must not all be zero",
		},
		{
			name: "unknown tolerance",
			mc: config.MatchingConfig{
				Weights:     config.WeightsConfig{Budget: 1},
				RiskTargets: map[string]float64{"reckless": 0.9},
			},
			wantErr: "unknown tolerance",
		},
		{
			name: "target out of range",
			mc: config.MatchingConfig{
				Weights:     config.WeightsConfig{Budget: 1},
				RiskTargets: map[string]float64{"high": 1.5},
			},
			wantErr: "within [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer, err := ScorerFromConfig(tt.mc)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, 1.0, scorer.Weights().Sum(), 1e-9)
			assert.InDelta(t, 0.30, scorer.Weights().Budget, 1e-9)
		})
	}
}

func TestScorerFromConfig_DefaultWeightsMatchLibrary(t *testing.T) {
	scorer, err := ScorerFromConfig(config.MatchingConfig{
		Weights: config.WeightsConfig{Budget: 0.30, Location: 0.25, Feature: 0.20, PropertyType: 0.15, Risk: 0.10},
	})
	require.NoError(t, err)

	scored := scorer.ScoreAll(testutil.Listings(), testutil.Profile())
	require.Len(t, scored, 3)
	assert.Equal(t, 95, scored[0].MatchScore)
}

func TestRetry(t *testing.T) {
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, log, "op", func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 2, time.Millisecond, log, "op", func(context.Context) error {
			calls++
			return errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.Contains(t, err.Error(), "op failed after 2 attempts")
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, 5, time.Hour, log, "op", func(context.Context) error {
			return errors.New("down")
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadValidator(t *testing.T) {
	v, err := LoadValidator("")
	require.NoError(t, err)
	assert.NoError(t, v.ValidateJSON("filter-listings", []byte(`{}`)))

	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1",
		"activities": [{
			"taskType": "save-search",
			"inputSchema": {"type": "object", "required": ["userId"]}
		}]
	}`), 0o644))

	v, err = LoadValidator(path)
	require.NoError(t, err)
	assert.True(t, v.Has("save-search"))
	assert.Error(t, v.ValidateJSON("save-search", []byte(`{}`)))

	_, err = LoadValidator(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewStores(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	stores := NewStores(database.NewPostgresFromDB(db), rc,
		config.CacheConfig{ProfileTTL: 60, KeyPrefix: "profile:"}, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT preferences FROM user_profiles WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"preferences"}).AddRow([]byte(`{"userId":"user-1","riskTolerance":"low"}`)))

	p, err := stores.Profiles.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, mr.Exists("profile:user-1"))
	assert.Equal(t, time.Minute, mr.TTL("profile:user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())

	infra := &Infra{Postgres: database.NewPostgresFromDB(db)}
	assert.NoError(t, infra.Ready(context.Background()))
}
