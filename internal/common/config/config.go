// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration shared by the worker manager and the
// search API.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Cache         CacheConfig             `mapstructure:"cache"`
	API           APIConfig               `mapstructure:"api"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	RegistryPath  string                  `mapstructure:"registry_path"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the lib/pq connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ListingIndex string   `mapstructure:"listing_index"`
}

// GetURL returns the first configured address.
func (e ElasticsearchConfig) GetURL() string {
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the settings every job worker shares.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// MatchingConfig tunes the scorer. Weights are normalised before use.
// MaxCandidates caps the listings a store-backed search loads before filtering
// and scoring.
type MatchingConfig struct {
	Weights       WeightsConfig      `mapstructure:"weights"`
	RiskTargets   map[string]float64 `mapstructure:"risk_targets"`
	DefaultLimit  int                `mapstructure:"default_limit"`
	MaxLimit      int                `mapstructure:"max_limit"`
	MaxCandidates int                `mapstructure:"max_candidates"`
}

type WeightsConfig struct {
	Budget       float64 `mapstructure:"budget"`
	Location     float64 `mapstructure:"location"`
	Feature      float64 `mapstructure:"feature"`
	PropertyType float64 `mapstructure:"property_type"`
	Risk         float64 `mapstructure:"risk"`
}

type CacheConfig struct {
	ProfileTTL int    `mapstructure:"profile_ttl"` // seconds
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// ProfileTTLDuration returns the profile cache TTL.
func (c CacheConfig) ProfileTTLDuration() time.Duration {
	return time.Duration(c.ProfileTTL) * time.Second
}

// APIConfig configures the search API. TrustForwardedFor keys rate limiting
// on the first X-Forwarded-For hop; enable it only behind a proxy that sets
// the header.
type APIConfig struct {
	Address           string          `mapstructure:"address"`
	ReadTimeout       int             `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout      int             `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout   int             `mapstructure:"shutdown_timeout"` // milliseconds
	TrustForwardedFor bool            `mapstructure:"trust_forwarded_for"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	IdleTTL           int     `mapstructure:"idle_ttl"` // seconds
}

// NotificationConfig configures the match alert channels.
type NotificationConfig struct {
	Region string `mapstructure:"region"`
	Email  struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
		MinScore int    `mapstructure:"min_score"`
	} `mapstructure:"sms"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	HealthAddress  string `mapstructure:"health_address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
