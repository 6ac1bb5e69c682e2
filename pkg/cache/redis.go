// Package cache provides the Redis-backed stores shared by the services.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uep/eventcheckin/pkg/config"
)

type Store struct {
	client *redis.Client
}

func New(cfg config.RedisConfig) (*Store, error) {
	const op = "cache.New"

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	return &Store{client: redis.NewClient(opts)}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	const op = "cache.Ping"

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get returns "" and no error when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const op = "cache.Get"

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "cache.Set"

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Allow counts one hit against key in a fixed window and reports whether the
// count is still within limit.
func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	const op = "cache.Allow"

	pipe := s.client.TxPipeline()
	hits := pipe.Incr(ctx, "ratelimit:"+key)
	pipe.ExpireNX(ctx, "ratelimit:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("%s: %w", op, err)
	}
	return hits.Val() <= int64(limit), nil
}

func (s *Store) Close() error {
	const op = "cache.Close"

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
