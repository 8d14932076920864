package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"snowbrief/internal/core"
	"snowbrief/internal/types"
)

// WeatherProvider fetches a weather snapshot for a coordinate.
type WeatherProvider interface {
	FetchSnapshot(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
}

// WeatherSnapshotCache is the optional zone-keyed snapshot cache. Snapshots
// are only cached when the request names a center and zone; ad-hoc coordinate
// lookups bypass it.
type WeatherSnapshotCache interface {
	Get(ctx context.Context, center, zone, forecastDate string) (*types.WeatherSnapshot, bool)
	Set(ctx context.Context, center, zone, forecastDate string, snapshot *types.WeatherSnapshot)
}

// WeatherHandler exposes raw weather snapshots.
type WeatherHandler struct {
	Weather WeatherProvider
	Cache   WeatherSnapshotCache
	Clock   types.Clock
	Logger  *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler.
func NewWeatherHandler(weather WeatherProvider, cache WeatherSnapshotCache, clock types.Clock, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{Weather: weather, Cache: cache, Clock: clock, Logger: logger}
}

// RegisterRoutes mounts the weather endpoints under /weather.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.Get)
}

// Get handles GET /v1/weather?lat=&lon=[&center=&zone=]. When center and zone
// are provided the snapshot is served from and written to the zone cache.
func (h *WeatherHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := parseCoordinate(query.Get("lat"), -90, 90)
	if err != nil {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLat,
			"lat must be a number between -90 and 90", err,
			map[string]any{"field": "lat", "value": query.Get("lat")},
		))
		return
	}
	lon, err := parseCoordinate(query.Get("lon"), -180, 180)
	if err != nil {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLon,
			"lon must be a number between -180 and 180", err,
			map[string]any{"field": "lon", "value": query.Get("lon")},
		))
		return
	}

	center := query.Get("center")
	zone := query.Get("zone")
	useCache := h.Cache != nil && center != "" && zone != ""
	forecastDate := types.CalendarDate(h.Clock.Now())

	if useCache {
		if snapshot, hit := h.Cache.Get(r.Context(), center, zone, forecastDate); hit {
			core.JSON(w, r, http.StatusOK, snapshot)
			return
		}
	}

	snapshot, err := h.Weather.FetchSnapshot(r.Context(), lat, lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if useCache {
		h.Cache.Set(r.Context(), center, zone, forecastDate, snapshot)
	}

	core.JSON(w, r, http.StatusOK, snapshot)
}

// parseCoordinate parses a decimal coordinate and enforces its valid range.
func parseCoordinate(raw string, min, max float64) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if value < min || value > max {
		return 0, strconv.ErrRange
	}
	return value, nil
}
