package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{ErrCodeNotFoundForecast, http.StatusNotFound},
		{ErrCodeConflictBriefingExists, http.StatusConflict},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{ErrCodeUpstreamForecast, http.StatusBadGateway},
		{ErrCodeUpstreamWeather, http.StatusBadGateway},
		{ErrCodeAIResponseMalformed, http.StatusInternalServerError},
		{ErrCodeAIResponseIncomplete, http.StatusInternalServerError},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewAppError(ErrCodeInternalDB, "query failed", inner)

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}

	var appErr *AppError
	wrapped := fmt.Errorf("request failed: %w", err)
	if !errors.As(wrapped, &appErr) {
		t.Fatal("expected errors.As to find the AppError in the chain")
	}
	if appErr.Code != ErrCodeInternalDB {
		t.Errorf("expected code %s, got %s", ErrCodeInternalDB, appErr.Code)
	}
}

func TestAppError_WithDetails(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeValidationMissingField, "center is required", nil,
		map[string]any{"field": "center"})

	extended := base.WithDetails(map[string]any{"zone": "Central Sierra"})

	if len(base.Details) != 1 {
		t.Errorf("original error details mutated: %v", base.Details)
	}
	if extended.Details["field"] != "center" || extended.Details["zone"] != "Central Sierra" {
		t.Errorf("merged details incorrect: %v", extended.Details)
	}
}

func TestDangerLevel_Label(t *testing.T) {
	cases := []struct {
		level DangerLevel
		want  string
	}{
		{DangerNoRating, "No Rating"},
		{DangerLow, "Low"},
		{DangerModerate, "Moderate"},
		{DangerConsiderable, "Considerable"},
		{DangerHigh, "High"},
		{DangerExtreme, "Extreme"},
		{DangerLevel(42), "No Rating"},
	}
	for _, tc := range cases {
		if got := tc.level.Label(); got != tc.want {
			t.Errorf("Label(%d) = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestDailySeries_Aligned(t *testing.T) {
	aligned := DailySeries{
		Time:                        []string{"2026-02-06", "2026-02-07"},
		TemperatureMax:              []float64{30, 31},
		TemperatureMin:              []float64{10, 12},
		PrecipitationSum:            []float64{0, 0.1},
		SnowfallSum:                 []float64{0, 1.5},
		PrecipitationProbabilityMax: []float64{10, 80},
		WindSpeedMax:                []float64{5, 25},
		WindGustsMax:                []float64{12, 40},
		UVIndexMax:                  []float64{3, 1},
	}
	if !aligned.Aligned() {
		t.Error("expected aligned series to report Aligned() = true")
	}

	misaligned := aligned
	misaligned.SnowfallSum = []float64{0}
	if misaligned.Aligned() {
		t.Error("expected misaligned series to report Aligned() = false")
	}
}

func TestPolygon_OuterRing(t *testing.T) {
	var nilPoly *Polygon
	if nilPoly.OuterRing() != nil {
		t.Error("nil polygon should have nil outer ring")
	}

	empty := &Polygon{Type: "Polygon"}
	if empty.OuterRing() != nil {
		t.Error("empty polygon should have nil outer ring")
	}

	poly := &Polygon{
		Type:        "Polygon",
		Coordinates: [][][2]float64{{{0, 0}, {0, 2}, {2, 2}, {2, 0}}},
	}
	ring := poly.OuterRing()
	if len(ring) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(ring))
	}
}
