package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bher20/energyplatform/internal/metrics"
)

func cacheKey(provider, query string) string {
	return provider + ":" + strings.ToLower(normalize(query))
}

// LRUCache keeps recent successful lookups in process memory.
type LRUCache struct {
	next  Geocoder
	cache *lru.Cache[string, Result]
}

func NewLRUCache(next Geocoder, size int) (*LRUCache, error) {
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{next: next, cache: c}, nil
}

func (c *LRUCache) Provider() string { return c.next.Provider() }

func (c *LRUCache) Search(ctx context.Context, query string) (Result, error) {
	key := cacheKey(c.Provider(), query)
	if r, ok := c.cache.Get(key); ok {
		metrics.GeocodeCacheTotal.WithLabelValues("lru", "hit").Inc()
		return r, nil
	}
	metrics.GeocodeCacheTotal.WithLabelValues("lru", "miss").Inc()

	r, err := c.next.Search(ctx, query)
	if err != nil {
		return Result{}, err
	}
	c.cache.Add(key, r)
	return r, nil
}

// RedisCache shares successful lookups between replicas. Redis failures
// fall through to the provider.
type RedisCache struct {
	next   Geocoder
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, next Geocoder, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{next: next, client: client, ttl: ttl}, nil
}

func (c *RedisCache) Provider() string { return c.next.Provider() }

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) Search(ctx context.Context, query string) (Result, error) {
	if normalize(query) == "" {
		return Result{}, ErrEmptyQuery
	}
	key := "geocode:" + cacheKey(c.Provider(), query)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r Result
		if jerr := json.Unmarshal(data, &r); jerr == nil {
			metrics.GeocodeCacheTotal.WithLabelValues("redis", "hit").Inc()
			return r, nil
		}
		c.client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("geocoding: redis get failed", "error", err)
	}
	metrics.GeocodeCacheTotal.WithLabelValues("redis", "miss").Inc()

	r, err := c.next.Search(ctx, query)
	if err != nil {
		return Result{}, err
	}
	if data, err := json.Marshal(r); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("geocoding: redis set failed", "error", err)
		}
	}
	return r, nil
}
