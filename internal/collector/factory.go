package collector

import (
	"context"
	"fmt"

	"StockLens/internal/config"
	"StockLens/internal/logger"
)

// FromConfig builds the configured price source, wrapped in the Redis cache
// when one is configured. The returned closer releases any held connections.
func FromConfig(ctx context.Context, cfg *config.Config) (Fetcher, func() error, error) {
	var (
		fetcher Fetcher
		closers []func() error
	)
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = NewYahooFetcher(cfg.Proxy, cfg.DataSource.RateLimit)
	case "rest":
		fetcher = NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "postgres":
		pg, err := NewPostgresFetcher(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		fetcher = pg
		closers = append(closers, pg.Close)
	case "mock":
		fetcher = &MockFetcher{Price: 100}
	default:
		return nil, nil, fmt.Errorf("unknown data provider %q", cfg.DataSource.Provider)
	}

	if cfg.Cache.RedisAddr != "" {
		store, err := NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Warn(ctx, "redis unavailable, continuing without price cache", "error", err)
		} else {
			fetcher = NewCachedFetcher(fetcher, store, cfg.Cache.TTL)
			closers = append(closers, store.Close)
		}
	}

	closeAll := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	logger.Info(ctx, "price source ready", "source", fetcher.Name())
	return fetcher, closeAll, nil
}
