// internal/workers/data-access/query-listings/config.go
package querylistings

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
}

func NewConfig(wc config.WorkerConfig, mc config.MatchingConfig) *Config {
	cfg := &Config{
		Timeout:      config.GetDuration(wc.Timeout),
		DefaultLimit: mc.DefaultLimit,
		MaxLimit:     mc.MaxLimit,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}
