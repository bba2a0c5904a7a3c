// Package cache caches computed itinerary results in Redis, adapted
// from the teacher's internal/cache/redis.go: the same RouteKey
// hashing and AcquireLock/WaitForLock thundering-herd guard, now
// keyed off query coordinates and departure time instead of a
// strategy name, and storing []itinerary.Itinerary instead of a
// single models.Path.
package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hanroute/transit-engine/internal/config"
	"github.com/hanroute/transit-engine/internal/itinerary"
)

// Cache wraps a Redis client for itinerary result caching.
type Cache struct {
	client   *redis.Client
	ttl      time.Duration
	mutexTTL time.Duration
}

// Open connects to Redis using the given configuration.
func Open(ctx context.Context, cfg *config.Redis, ttl, mutexTTL time.Duration) (*Cache, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
	if os.Getenv("REDIS_TLS_ENABLED") == "true" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connecting to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl, mutexTTL: mutexTTL}, nil
}

func (c *Cache) Close() error { return c.client.Close() }

// RouteKey derives a deterministic cache key from the query's
// coordinates and departure time.
func RouteKey(fromLat, fromLon, toLat, toLon float64, departSec int) string {
	data := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%d", fromLat, fromLon, toLat, toLon, departSec)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("itinerary:%x", hash[:8])
}

func lockKey(routeKey string) string { return fmt.Sprintf("lock:%s", routeKey) }

// Get retrieves cached itineraries for a key; a nil, nil result is a
// cache miss.
func (c *Cache) Get(ctx context.Context, key string) ([]itinerary.Itinerary, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result []itinerary.Itinerary
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("cache: unmarshaling cached itineraries: %w", err)
	}
	return result, nil
}

// Set caches itineraries under key for the cache's configured TTL.
func (c *Cache) Set(ctx context.Context, key string, result []itinerary.Itinerary) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshaling itineraries: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// AcquireLock attempts to claim the computation lock for a route key,
// so concurrent identical queries don't all recompute at once.
func (c *Cache) AcquireLock(ctx context.Context, routeKey string) (bool, error) {
	return c.client.SetNX(ctx, lockKey(routeKey), "1", c.mutexTTL).Result()
}

func (c *Cache) ReleaseLock(ctx context.Context, routeKey string) error {
	return c.client.Del(ctx, lockKey(routeKey)).Err()
}

// WaitForLock polls until a route key's computation lock clears, then
// returns whatever ended up cached (the thundering-herd guard: losers
// of AcquireLock wait here instead of recomputing).
func (c *Cache) WaitForLock(ctx context.Context, routeKey string, maxWait time.Duration) ([]itinerary.Itinerary, error) {
	deadline := time.Now().Add(maxWait)
	key := lockKey(routeKey)

	for time.Now().Before(deadline) {
		exists, err := c.client.Exists(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return c.Get(ctx, routeKey)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("cache: timeout waiting for computation lock")
}
