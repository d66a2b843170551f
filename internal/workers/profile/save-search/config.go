package savesearch

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	MaxNameLength int
}

func NewConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:       config.GetDuration(wc.Timeout),
		MaxNameLength: 120,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
