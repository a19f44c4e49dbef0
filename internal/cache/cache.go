package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
)

// ErrCacheMiss is returned by Get for an absent or expired key.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-oriented cache with per-entry expiry. A zero ttl means the
// store's default.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var Module = fx.Provide(NewStore)

// NewStore returns the store named by CACHE_DRIVER.
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Cache.Driver {
	case "noop":
		logger.Info("cache disabled; using noop store")
		return nopStore{}, nil
	case "redis":
		store := newRedisStore(cfg.Cache)
		lc.Append(fx.StartStopHook(
			func(ctx context.Context) error {
				if err := store.ping(ctx); err != nil {
					return err
				}
				logger.Info("redis cache connected", zap.String("addr", cfg.Cache.Redis.Addr))
				return nil
			},
			func() error {
				logger.Info("closing redis cache")
				return store.client.Close()
			},
		))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// nopStore never holds anything.
type nopStore struct{}

func (nopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }
func (nopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nopStore) Delete(context.Context, ...string) error { return nil }
