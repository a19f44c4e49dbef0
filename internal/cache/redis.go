package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/Additional-Code/restaurant/internal/config"
)

var errEmptyKey = errors.New("cache key is required")

type redisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func newRedisStore(cfg config.Cache) *redisStore {
	return &redisStore{
		client: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		ttl: cfg.DefaultTTL,
	}
}

func (s *redisStore) ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheMiss
	}
	value, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	default:
		return value, nil
	}
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete ignores empty keys; deleting nothing is not an error.
func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	keys = lo.Compact(keys)
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
