// internal/workers/data-access/query-listing-index/config.go
package querylistingindex

import (
	"time"

	"propguard-workers/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	DefaultSize int
	MaxSize     int
}

func NewConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:     config.GetDuration(wc.Timeout),
		DefaultSize: 20,
		MaxSize:     100,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg
}
