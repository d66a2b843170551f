package ranklistings

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	MaxItems int
}

func NewConfig(wc config.WorkerConfig, mc config.MatchingConfig) *Config {
	cfg := &Config{Timeout: config.GetDuration(wc.Timeout), MaxItems: mc.MaxLimit}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
