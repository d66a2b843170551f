// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"propguard-workers/internal/common/cache"
	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/database"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/validation"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
	"propguard-workers/internal/repository"
	"propguard-workers/pkg/registry"
)

// ScorerFromConfig builds the scorer from the matching section. Unknown risk
// tolerances and all-zero weights are configuration errors.
func ScorerFromConfig(mc config.MatchingConfig) (*matching.Scorer, error) {
	targets := matching.RiskTargets{}
	for name, v := range mc.RiskTargets {
		tol := models.RiskTolerance(strings.ToLower(strings.TrimSpace(name)))
		switch tol {
		case models.RiskLow, models.RiskMedium, models.RiskHigh:
		default:
			return nil, fmt.Errorf("matching.risk_targets: unknown tolerance %q", name)
		}
		targets[tol] = v
	}
	if err := targets.Validate(); err != nil {
		return nil, err
	}

	w := matching.Weights{
		Budget:       mc.Weights.Budget,
		Location:     mc.Weights.Location,
		Feature:      mc.Weights.Feature,
		PropertyType: mc.Weights.PropertyType,
		Risk:         mc.Weights.Risk,
	}
	if w.Sum() <= 0 {
		return nil, fmt.Errorf("matching.weights must not all be zero")
	}
	return matching.NewScorer(w, targets), nil
}

// Retry runs op until it succeeds, doubling delay between attempts.
func Retry(ctx context.Context, attempts int, delay time.Duration, log logger.Logger, name string, op func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Warn(name+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}

// LoadValidator compiles the activity registry at path. An empty path
// yields a validator that accepts everything.
func LoadValidator(path string) (*validation.Validator, error) {
	if path == "" {
		return validation.NewValidator(nil)
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, err
	}
	return validation.NewValidator(reg)
}

// Stores groups the Postgres repositories.
type Stores struct {
	Listings      *repository.ListingStore
	Profiles      *repository.ProfileStore
	SavedSearches *repository.SavedSearchStore
	Contacts      *repository.ContactStore
}

// Infra holds the live connections of one process.
type Infra struct {
	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Stores        *Stores
}

// ConnectOptions selects which backends Connect must reach.
type ConnectOptions struct {
	Elasticsearch bool
	Attempts      int
	Delay         time.Duration
}

// Connect opens Postgres and Redis, and Elasticsearch when asked, retrying
// each until it answers a ping. Redis failing is not fatal: profiles are then
// read straight from Postgres.
func Connect(ctx context.Context, cfg *config.Config, opts ConnectOptions, log logger.Logger) (*Infra, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 10
	}
	if opts.Delay == 0 {
		opts.Delay = 2 * time.Second
	}

	infra := &Infra{}
	err := Retry(ctx, opts.Attempts, opts.Delay, log, "postgres connection", func(ctx context.Context) error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		infra.Postgres = pg
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("postgres connected", map[string]interface{}{"host": cfg.Database.Postgres.Host})

	rc := database.NewRedis(cfg.Database.Redis)
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unavailable, profile cache disabled", map[string]interface{}{"error": err})
		_ = rc.Close()
	} else {
		infra.Redis = rc
		log.Info("redis connected", map[string]interface{}{"address": cfg.Database.Redis.Address})
	}

	if opts.Elasticsearch {
		err := Retry(ctx, opts.Attempts, opts.Delay, log, "elasticsearch connection", func(ctx context.Context) error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			infra.Elasticsearch = es
			return nil
		})
		if err != nil {
			infra.Close()
			return nil, err
		}
		log.Info("elasticsearch connected", map[string]interface{}{"index": infra.Elasticsearch.Index})
	}

	infra.Stores = NewStores(infra.Postgres, infra.Redis, cfg.Cache, log)
	return infra, nil
}

// NewStores builds the repositories. rc may be nil.
func NewStores(pg *database.PostgresClient, rc *database.RedisClient, cc config.CacheConfig, log logger.Logger) *Stores {
	var profileCache *cache.Store
	if rc != nil {
		profileCache = cache.NewStore(rc.Client, cc.KeyPrefix, cc.ProfileTTLDuration())
	}
	return &Stores{
		Listings:      repository.NewListingStore(pg.DB),
		Profiles:      repository.NewProfileStore(pg.DB, profileCache, log),
		SavedSearches: repository.NewSavedSearchStore(pg.DB),
		Contacts:      repository.NewContactStore(pg.DB),
	}
}

// Ready pings every connected backend.
func (i *Infra) Ready(ctx context.Context) error {
	if err := i.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if i.Elasticsearch != nil {
		if err := i.Elasticsearch.Ping(ctx); err != nil {
			return fmt.Errorf("elasticsearch: %w", err)
		}
	}
	return nil
}

func (i *Infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.Postgres != nil {
		_ = i.Postgres.Close()
	}
}
