package scorelistings

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// IncludeExcluded keeps deal-breaker listings in the output with score 0.
	IncludeExcluded bool
}

func NewConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{Timeout: config.GetDuration(wc.Timeout), IncludeExcluded: true}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return cfg
}
