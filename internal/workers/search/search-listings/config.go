package searchlistings

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	DefaultLimit  int
	MaxLimit      int
	MaxCandidates int
}

func NewConfig(wc config.WorkerConfig, mc config.MatchingConfig) *Config {
	cfg := &Config{
		Timeout:       config.GetDuration(wc.Timeout),
		DefaultLimit:  mc.DefaultLimit,
		MaxLimit:      mc.MaxLimit,
		MaxCandidates: mc.MaxCandidates,
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}

// effectiveLimit applies the default to an unset limit and caps it.
func (c *Config) effectiveLimit(requested int) int {
	limit := requested
	if limit == 0 {
		limit = c.DefaultLimit
	}
	if c.MaxLimit > 0 && limit > c.MaxLimit {
		limit = c.MaxLimit
	}
	return limit
}
