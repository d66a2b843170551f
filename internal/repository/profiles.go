// internal/repository/profiles.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"propguard-workers/internal/common/cache"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/metrics"
	"propguard-workers/internal/models"
)

// ProfileStore keeps user preferences in user_profiles.preferences (jsonb)
// behind a read-through Redis cache. The cache is optional.
type ProfileStore struct {
	db     *sql.DB
	cache  *cache.Store
	logger logger.Logger
}

func NewProfileStore(db *sql.DB, c *cache.Store, log logger.Logger) *ProfileStore {
	return &ProfileStore{db: db, cache: c, logger: log}
}

// Get returns the stored profile, or ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p, ok := s.fromCache(ctx, userID); ok {
		return p, nil
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT preferences FROM user_profiles WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var p models.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	p.UserID = userID

	s.toCache(ctx, &p)
	return &p, nil
}

// Load is Get with the default profile standing in for users who never saved
// preferences. The bool reports whether the default was used.
func (s *ProfileStore) Load(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	p, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultProfile(userID), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// Save upserts p and refreshes its cache entry.
func (s *ProfileStore) Save(ctx context.Context, p *models.UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, preferences, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = now()`,
		p.UserID, raw)
	if err != nil {
		return err
	}

	s.toCache(ctx, p)
	return nil
}

func (s *ProfileStore) fromCache(ctx context.Context, userID string) (*models.UserProfile, bool) {
	if s.cache == nil {
		return nil, false
	}
	var p models.UserProfile
	err := s.cache.Get(ctx, userID, &p)
	metrics.ObserveCache("profile", err == nil)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("profile cache read failed", map[string]interface{}{"userId": userID, "error": err})
		}
		return nil, false
	}
	return &p, true
}

// toCache writes p, dropping the old entry when the write fails so a stale
// profile is never served.
func (s *ProfileStore) toCache(ctx context.Context, p *models.UserProfile) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, p.UserID, p); err != nil {
		s.logger.Warn("profile cache write failed", map[string]interface{}{"userId": p.UserID, "error": err})
		_ = s.cache.Invalidate(ctx, p.UserID)
	}
}
