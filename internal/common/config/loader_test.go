package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: propguard
    user: propguard
  redis:
    address: localhost:6379
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
workers:
  score-listings:
    enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "listings", cfg.Database.Elasticsearch.ListingIndex)
	assert.Equal(t, 0.30, cfg.Matching.Weights.Budget)
	assert.Equal(t, 20, cfg.Matching.DefaultLimit)
	assert.Equal(t, 500, cfg.Matching.MaxCandidates)
	assert.False(t, cfg.API.TrustForwardedFor)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ProfileTTLDuration())
	assert.Equal(t, ":8081", cfg.API.Address)

	w := cfg.Workers["score-listings"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
    password: ${TEST_REDIS_PASSWORD}
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Redis.Password)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing postgres host",
			body: "database:\n  redis:\n    address: localhost:6379\n",
			want: "database.postgres.host is required",
		},
		{
			name: "negative weight",
			body: minimalConfig + "matching:\n  weights:\n    budget: -1\n    location: 1\n",
			want: "matching.weights must be non-negative",
		},
		{
			name: "risk target out of range",
			body: minimalConfig + "matching:\n  risk_targets:\n    low: 2\n",
			want: "matching.risk_targets.low",
		},
		{
			name: "negative candidate cap",
			body: minimalConfig + "matching:\n  max_candidates: -1\n",
			want: "matching.max_candidates must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRequireWorkers(t *testing.T) {
	cfg := &Config{}
	assert.EqualError(t, cfg.RequireWorkers(), "camunda.broker_address is required")

	cfg.Camunda.BrokerAddress = "localhost:26500"
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	assert.NoError(t, cfg.RequireWorkers())
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"rank-listings": {Enabled: false, Timeout: 1000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "rank-listings"))
	assert.True(t, IsWorkerEnabled(cfg, "save-search"))
	assert.Equal(t, 1000, GetWorkerConfig(cfg, "rank-listings").Timeout)
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "save-search").Timeout)
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
