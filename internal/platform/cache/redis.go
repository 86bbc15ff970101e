// Package cache wraps the Redis client behind the two small capabilities the
// HTTP layer needs: windowed counters for rate limiting and TTL'd key-value
// storage for idempotency replay.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotline/slotline-api/pkg/config"
)

type Store struct {
	client *redis.Client
}

func New(cfg config.RedisConfig) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// CountInWindow increments the counter for key and returns the new count. The
// key expires when the window elapses, so counts reset naturally.
func (s *Store) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Get returns the stored value for key, or "" when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
