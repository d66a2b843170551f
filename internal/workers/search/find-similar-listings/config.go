package findsimilarlistings

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	DefaultLimit  int
	MaxCandidates int
}

func NewConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:       config.GetDuration(wc.Timeout),
		DefaultLimit:  5,
		MaxCandidates: 200,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
