package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"snowbrief/internal/config"
	"snowbrief/internal/types"
)

const openMeteoFixture = `{
	"latitude": 47.42,
	"longitude": -121.41,
	"elevation": 921.0,
	"current": {
		"time": "2026-01-15T14:00",
		"temperature_2m": 28.4,
		"relative_humidity_2m": 87,
		"apparent_temperature": 21.1,
		"precipitation": 0.02,
		"weather_code": 73,
		"cloud_cover": 100,
		"pressure_msl": 1012.3,
		"wind_speed_10m": 14.2,
		"wind_direction_10m": 315,
		"wind_gusts_10m": 31.5
	},
	"hourly": {
		"time": ["2026-01-15T00:00", "2026-01-15T01:00"],
		"temperature_2m": [27.0, 26.5],
		"precipitation_probability": [80, 85],
		"precipitation": [0.01, 0.03],
		"snowfall": [0.2, 0.4],
		"cloud_cover": [100, 100],
		"visibility": [5200, 4100],
		"wind_speed_10m": [12.0, 13.5],
		"wind_direction_10m": [310, 320],
		"wind_gusts_10m": [25.0, 28.0],
		"uv_index": [0.0, 0.0]
	},
	"daily": {
		"time": ["2026-01-14", "2026-01-15"],
		"temperature_2m_max": [30.1, 29.2],
		"temperature_2m_min": [22.5, 21.8],
		"precipitation_sum": [0.4, 0.6],
		"snowfall_sum": [4.2, 6.1],
		"precipitation_probability_max": [90, 95],
		"wind_speed_10m_max": [18.0, 20.5],
		"wind_gusts_10m_max": [35.0, 42.0],
		"uv_index_max": [1.2, 0.8]
	}
}`

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newOpenMeteoTestClient(t *testing.T, handler http.Handler) (*OpenMeteoClient, *url.Values) {
	t.Helper()
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.WeatherConfig{BaseURL: server.URL, Timeout: 5 * time.Second}
	clock := fixedClock{now: time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)}
	return NewOpenMeteoClient(cfg, clock, WithSleepFunc(noopSleep)), &captured
}

func TestFetchSnapshot_TransformsResponse(t *testing.T) {
	client, query := newOpenMeteoTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openMeteoFixture))
	}))

	snapshot, err := client.FetchSnapshot(context.Background(), 47.42, -121.41)
	if err != nil {
		t.Fatalf("FetchSnapshot returned error: %v", err)
	}

	if snapshot.Location.Elevation != 921.0 {
		t.Errorf("expected elevation 921, got %v", snapshot.Location.Elevation)
	}
	if snapshot.Current.WeatherDescription != "Moderate snow" {
		t.Errorf("expected WMO code 73 => Moderate snow, got %q", snapshot.Current.WeatherDescription)
	}
	if snapshot.Current.WindDirectionCardinal != "NW" {
		t.Errorf("expected 315 degrees => NW, got %q", snapshot.Current.WindDirectionCardinal)
	}
	if len(snapshot.Daily.Time) != 2 || snapshot.Daily.SnowfallSum[1] != 6.1 {
		t.Errorf("unexpected daily series: %+v", snapshot.Daily)
	}
	if !snapshot.Daily.Aligned() {
		t.Error("expected aligned daily series")
	}
	if snapshot.LastUpdated != "2026-01-15T14:30:00Z" {
		t.Errorf("expected clock-driven lastUpdated, got %q", snapshot.LastUpdated)
	}

	q := *query
	if q.Get("temperature_unit") != "fahrenheit" || q.Get("wind_speed_unit") != "mph" || q.Get("precipitation_unit") != "inch" {
		t.Errorf("unexpected unit params: %v", q)
	}
	if q.Get("timezone") != "auto" || q.Get("forecast_days") != "7" || q.Get("past_days") != "14" {
		t.Errorf("unexpected window params: %v", q)
	}
	if q.Get("latitude") != "47.42" || q.Get("longitude") != "-121.41" {
		t.Errorf("unexpected coordinates: %v", q)
	}
}

func TestFetchSnapshot_UpstreamError(t *testing.T) {
	client, _ := newOpenMeteoTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := client.FetchSnapshot(context.Background(), 47.42, -121.41)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeUpstreamWeather {
		t.Errorf("expected upstream_weather_unavailable, got %q", appErr.Code)
	}
}

func TestCardinalDirection(t *testing.T) {
	tests := []struct {
		degrees float64
		want    string
	}{
		{0, "N"},
		{22.5, "NNE"},
		{45, "NE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{315, "NW"},
		{348.75, "NNW"},
		{360, "N"},
		{359, "N"},
	}

	for _, tt := range tests {
		if got := CardinalDirection(tt.degrees); got != tt.want {
			t.Errorf("CardinalDirection(%v) = %q, want %q", tt.degrees, got, tt.want)
		}
	}
}

func TestWeatherDescription_UnknownCode(t *testing.T) {
	if got := WeatherDescription(42); got != "Unknown" {
		t.Errorf("expected Unknown for unmapped code, got %q", got)
	}
}
