package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snowbrief/internal/core"
	"snowbrief/internal/types"
)

// ForecastLister fetches the current forecasts for every zone of a center.
type ForecastLister interface {
	ListForecasts(ctx context.Context, center, forecastDate string) ([]types.ForecastRecord, error)
}

// ForecastHandler exposes the raw official forecasts, without synthesis.
type ForecastHandler struct {
	Source ForecastLister
	Clock  types.Clock
	Logger *slog.Logger
}

// NewForecastHandler creates a ForecastHandler.
func NewForecastHandler(source ForecastLister, clock types.Clock, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{Source: source, Clock: clock, Logger: logger}
}

// forecastListResponse wraps the zone forecasts for one center.
type forecastListResponse struct {
	Center       string                 `json:"center"`
	ForecastDate string                 `json:"forecast_date"`
	Forecasts    []types.ForecastRecord `json:"forecasts"`
	Count        int                    `json:"count"`
}

// RegisterRoutes mounts the forecast endpoints under /forecasts.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/forecasts", h.List)
}

// List handles GET /v1/forecasts?center=: today's forecast for every zone of
// the named center.
func (h *ForecastHandler) List(w http.ResponseWriter, r *http.Request) {
	center := r.URL.Query().Get("center")
	if center == "" {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"center is required", nil,
			map[string]any{"field": "center"},
		))
		return
	}

	forecastDate := types.CalendarDate(h.Clock.Now())
	forecasts, err := h.Source.ListForecasts(r.Context(), center, forecastDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, forecastListResponse{
		Center:       center,
		ForecastDate: forecastDate,
		Forecasts:    forecasts,
		Count:        len(forecasts),
	})
}
