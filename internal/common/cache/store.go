// internal/common/cache/store.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a JSON cache with one key prefix and one TTL. It is built by the
// caller and passed to whoever needs it.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewStore returns a store writing keys as prefix+id. A zero ttl means entries
// never expire.
func NewStore(client redis.Cmdable, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) Key(id string) string {
	return s.prefix + id
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get decodes the cached value for id into dst.
func (s *Store) Get(ctx context.Context, id string, dst interface{}) error {
	data, err := s.client.Get(ctx, s.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", s.Key(id), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cache decode %s: %w", s.Key(id), err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, id string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", s.Key(id), err)
	}
	if err := s.client.Set(ctx, s.Key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", s.Key(id), err)
	}
	return nil
}

// Invalidate drops the entry for id. Missing keys are not an error.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.Key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", s.Key(id), err)
	}
	return nil
}
