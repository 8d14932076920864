// Package cache provides the Redis-backed weather snapshot cache. Weather
// observations change on the provider's model cycle, not per request, so
// snapshots are cached per briefing key with a TTL instead of being refetched
// on every synthesis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"snowbrief/internal/types"
)

// RedisClient is the subset of *redis.Client the cache uses, extracted so
// tests can substitute a fake built from go-redis result constructors.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// WeatherCache stores weather snapshots keyed by (center, zone, forecast
// date). A cache failure is never fatal: readers treat errors as a miss and
// writers log and continue, because a briefing built from a freshly fetched
// snapshot is always acceptable.
type WeatherCache struct {
	rdb    RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewWeatherCache creates a WeatherCache with the given snapshot TTL.
func NewWeatherCache(rdb RedisClient, ttl time.Duration, logger *slog.Logger) *WeatherCache {
	return &WeatherCache{rdb: rdb, ttl: ttl, logger: logger}
}

func snapshotKey(center, zone, forecastDate string) string {
	return fmt.Sprintf("weather:%s:%s:%s",
		strings.ToLower(center),
		strings.ToLower(zone),
		forecastDate,
	)
}

// Get returns the cached snapshot for a key, or (nil, false) on a miss.
// Redis errors and corrupt entries are degraded to misses.
func (c *WeatherCache) Get(ctx context.Context, center, zone, forecastDate string) (*types.WeatherSnapshot, bool) {
	key := snapshotKey(center, zone, forecastDate)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("weather cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var snapshot types.WeatherSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.logger.Warn("weather cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	return &snapshot, true
}

// Set stores a snapshot under its key for the configured TTL. Failures are
// logged and swallowed.
func (c *WeatherCache) Set(ctx context.Context, center, zone, forecastDate string, snapshot *types.WeatherSnapshot) {
	key := snapshotKey(center, zone, forecastDate)

	raw, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("weather snapshot marshal failed", "key", key, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("weather cache write failed", "key", key, "error", err)
	}
}

// Probe adapts the Redis client to the health check interface.
type Probe struct {
	Client *redis.Client
}

func (p *Probe) Name() string { return "redis" }

func (p *Probe) Check(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
