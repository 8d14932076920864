package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"snowbrief/internal/types"
)

// fakeRedis records Set calls and serves canned Get results.
type fakeRedis struct {
	data    map[string]string
	getErr  error
	setErr  error
	lastTTL time.Duration
	lastKey string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.lastKey = key
	f.lastTTL = expiration
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	if f.data == nil {
		f.data = make(map[string]string)
	}
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func newTestCache(rdb RedisClient, ttl time.Duration) *WeatherCache {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWeatherCache(rdb, ttl, logger)
}

func TestWeatherCache_RoundTrip(t *testing.T) {
	fake := &fakeRedis{}
	c := newTestCache(fake, 6*time.Hour)

	snapshot := &types.WeatherSnapshot{
		Location:    types.Location{Lat: 47.42, Lon: -121.41},
		Current:     types.CurrentConditions{Temperature: 28.4, WindDirectionCardinal: "NW"},
		LastUpdated: "2026-01-15T14:00",
	}

	c.Set(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15", snapshot)

	if fake.lastTTL != 6*time.Hour {
		t.Errorf("expected 6h TTL on write, got %s", fake.lastTTL)
	}

	got, ok := c.Get(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15")
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if got.Current.Temperature != 28.4 {
		t.Errorf("expected temperature round-tripped, got %v", got.Current.Temperature)
	}
	if got.Current.WindDirectionCardinal != "NW" {
		t.Errorf("expected cardinal round-tripped, got %q", got.Current.WindDirectionCardinal)
	}
}

func TestWeatherCache_KeyIsCaseInsensitive(t *testing.T) {
	fake := &fakeRedis{}
	c := newTestCache(fake, time.Hour)

	c.Set(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15", &types.WeatherSnapshot{})

	if _, ok := c.Get(context.Background(), "nwac", "SNOQUALMIE PASS", "2026-01-15"); !ok {
		t.Error("expected hit regardless of center/zone casing")
	}
	if _, ok := c.Get(context.Background(), "nwac", "SNOQUALMIE PASS", "2026-01-16"); ok {
		t.Error("expected miss for a different forecast date")
	}
}

func TestWeatherCache_Miss(t *testing.T) {
	c := newTestCache(&fakeRedis{}, time.Hour)

	if _, ok := c.Get(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestWeatherCache_ErrorsDegradeToMiss(t *testing.T) {
	c := newTestCache(&fakeRedis{getErr: errors.New("connection reset")}, time.Hour)

	if _, ok := c.Get(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15"); ok {
		t.Error("expected redis error treated as miss")
	}
}

func TestWeatherCache_CorruptEntryDegradesToMiss(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{
		snapshotKey("NWAC", "Snoqualmie Pass", "2026-01-15"): "{not json",
	}}
	c := newTestCache(fake, time.Hour)

	if _, ok := c.Get(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15"); ok {
		t.Error("expected corrupt entry treated as miss")
	}
}

func TestWeatherCache_SetFailureIsSilent(t *testing.T) {
	c := newTestCache(&fakeRedis{setErr: errors.New("readonly replica")}, time.Hour)

	// Must not panic or surface the error.
	c.Set(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15", &types.WeatherSnapshot{})
}

func TestWeatherCache_StoredValueIsJSON(t *testing.T) {
	fake := &fakeRedis{}
	c := newTestCache(fake, time.Hour)

	c.Set(context.Background(), "NWAC", "Snoqualmie Pass", "2026-01-15", &types.WeatherSnapshot{
		LastUpdated: "2026-01-15T14:00",
	})

	var decoded types.WeatherSnapshot
	if err := json.Unmarshal([]byte(fake.data[fake.lastKey]), &decoded); err != nil {
		t.Fatalf("stored value is not valid JSON: %v", err)
	}
	if decoded.LastUpdated != "2026-01-15T14:00" {
		t.Errorf("unexpected stored snapshot: %+v", decoded)
	}
}
