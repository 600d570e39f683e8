package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Defaults for RedisStore.
const (
	defaultRunPrefix = "scribe"
	defaultRunTTL    = 7 * 24 * time.Hour
)

// RedisStore persists runs in Redis as JSON, so that a run can be resumed
// from another process.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRunTTL sets how long an untouched run is kept. Every save refreshes it.
// Zero disables expiry.
func WithRunTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithRunPrefix sets the key prefix. Default is "scribe".
func WithRunPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed run store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    defaultRunTTL,
		prefix: defaultRunPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements Store with SET NX.
func (s *RedisStore) Create(ctx context.Context, run *Run) error {
	data, err := marshalRun(run)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.runKey(run.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (*Run, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return unmarshalRun(data)
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, run *Run) error {
	data, err := marshalRun(run)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.runKey(run.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.runKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (s *RedisStore) runKey(id string) string {
	return fmt.Sprintf("%s:run:%s", s.prefix, id)
}
