package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"StockLens/internal/logger"
	"StockLens/internal/model"
)

// ErrCacheMiss is returned by a PriceStore when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// PriceStore is the byte-level cache behind CachedFetcher.
type PriceStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements PriceStore on a Redis client.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: "stocklens:"}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// CachedFetcher is a read-through cache in front of another Fetcher. Cache
// failures are logged and fall through to the source.
type CachedFetcher struct {
	Next  Fetcher
	Store PriceStore
	TTL   time.Duration
}

// NewCachedFetcher wraps next with store.
func NewCachedFetcher(next Fetcher, store PriceStore, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Next: next, Store: store, TTL: ttl}
}

func (c *CachedFetcher) Name() string { return c.Next.Name() + "+cache" }

func cacheKey(source, symbol string, start time.Time) string {
	return fmt.Sprintf("bars:%s:%s:%s", source, symbol, model.DayOf(start).Format("2006-01-02"))
}

func (c *CachedFetcher) FetchDailyBars(ctx context.Context, symbol string, start time.Time) ([]model.PriceBar, error) {
	key := cacheKey(c.Next.Name(), symbol, start)

	data, err := c.Store.Get(ctx, key)
	switch {
	case err == nil:
		var bars []model.PriceBar
		if err := json.Unmarshal(data, &bars); err == nil {
			logger.Debug(ctx, "price cache hit", "symbol", symbol, "bars", len(bars))
			return bars, nil
		}
		logger.Warn(ctx, "discarding undecodable cache entry", "key", key)
	case !errors.Is(err, ErrCacheMiss):
		logger.Warn(ctx, "price cache read failed", "key", key, "error", err)
	}

	bars, err := c.Next.FetchDailyBars(ctx, symbol, start)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bars); err == nil {
		if err := c.Store.Set(ctx, key, data, c.TTL); err != nil {
			logger.Warn(ctx, "price cache write failed", "key", key, "error", err)
		}
	}
	return bars, nil
}
