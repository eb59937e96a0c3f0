package cli

import (
	"context"

	"github.com/depfuse/depfuse/pkg/cache"
	"github.com/depfuse/depfuse/pkg/errors"
	"github.com/depfuse/depfuse/pkg/store"
)

// openCache constructs the metadata cache backend named by the config.
func openCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "file":
		dir, err := cfg.cacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis, or none)", cfg.Backend)
	}
}

// openStore constructs the run store named by the config. A "none" backend
// returns (nil, nil); callers fall back to the run file on disk.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return store.NewMemoryStore(), nil
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.URI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q (want mongo, memory, or none)", cfg.Backend)
	}
}

// closeStore closes s if non-nil, logging close failures.
func closeStore(ctx context.Context, s store.Store) {
	if s == nil {
		return
	}
	if err := s.Close(ctx); err != nil {
		loggerFromContext(ctx).Warnf("closing store: %v", err)
	}
}
