package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"snowbrief/internal/briefing"
	"snowbrief/internal/core"
	"snowbrief/internal/types"
)

type mockBriefingService struct {
	getFn        func(ctx context.Context, center, zone string) (*briefing.Envelope, error)
	generateFn   func(ctx context.Context, center, zone string) (*briefing.Envelope, error)
	regenerateFn func(ctx context.Context, center, zone string) (string, error)
}

func (m *mockBriefingService) GetBriefing(ctx context.Context, center, zone string) (*briefing.Envelope, error) {
	return m.getFn(ctx, center, zone)
}

func (m *mockBriefingService) GenerateBriefing(ctx context.Context, center, zone string) (*briefing.Envelope, error) {
	return m.generateFn(ctx, center, zone)
}

func (m *mockBriefingService) RegenerateBriefing(ctx context.Context, center, zone string) (string, error) {
	return m.regenerateFn(ctx, center, zone)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBriefingRouter(service BriefingService) http.Handler {
	h := NewBriefingHandler(service, core.NewValidator(), testLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func sampleBriefing() *types.Briefing {
	return &types.Briefing{
		ID:           "b-1",
		Center:       "NWAC",
		Zone:         "Snoqualmie Pass",
		ForecastDate: "2026-01-15",
		DangerLevel:  types.DangerConsiderable,
		BriefingText: "Considerable danger above treeline.",
		SourceURL:    "https://nwac.us/avalanche-forecast/#/snoqualmie-pass",
		SourceCenter: "NWAC",
		Disclaimer:   "Educational summary only.",
		CreatedAt:    time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC),
	}
}

func decodeErrorResponse(t *testing.T, body io.Reader) core.APIErrorResponse {
	t.Helper()
	var resp core.APIErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp
}

func TestBriefingGet_ReturnsEnvelope(t *testing.T) {
	var gotCenter, gotZone string
	service := &mockBriefingService{
		getFn: func(_ context.Context, center, zone string) (*briefing.Envelope, error) {
			gotCenter, gotZone = center, zone
			return &briefing.Envelope{Briefing: sampleBriefing(), Cached: true}, nil
		},
	}
	router := newBriefingRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/briefings?center=NWAC&zone=Snoqualmie+Pass", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotCenter != "NWAC" || gotZone != "Snoqualmie Pass" {
		t.Errorf("service received (%q, %q)", gotCenter, gotZone)
	}

	var env briefing.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !env.Cached {
		t.Error("cached = false")
	}
	if env.Briefing == nil || env.Briefing.ID != "b-1" {
		t.Errorf("briefing = %+v", env.Briefing)
	}
}

func TestBriefingGet_MissingBriefingIsNullNot404(t *testing.T) {
	service := &mockBriefingService{
		getFn: func(_ context.Context, _, _ string) (*briefing.Envelope, error) {
			return &briefing.Envelope{Briefing: nil, Cached: false}, nil
		},
	}
	router := newBriefingRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/briefings?center=NWAC&zone=Snoqualmie+Pass", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"briefing":null`) {
		t.Errorf("body = %s, want explicit null briefing", rec.Body.String())
	}
}

func TestBriefingGet_ServiceErrorMapped(t *testing.T) {
	service := &mockBriefingService{
		getFn: func(_ context.Context, _, _ string) (*briefing.Envelope, error) {
			return nil, types.NewAppError(types.ErrCodeValidationMissingField, "center is required", nil)
		},
	}
	router := newBriefingRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/briefings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeErrorResponse(t, rec.Body); resp.Error.Code != string(types.ErrCodeValidationMissingField) {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

func TestBriefingGenerate_Success(t *testing.T) {
	service := &mockBriefingService{
		generateFn: func(_ context.Context, center, zone string) (*briefing.Envelope, error) {
			if center != "NWAC" || zone != "Snoqualmie Pass" {
				t.Errorf("service received (%q, %q)", center, zone)
			}
			return &briefing.Envelope{Briefing: sampleBriefing(), Cached: false}, nil
		},
	}
	router := newBriefingRouter(service)

	body := `{"center":"NWAC","zone":"Snoqualmie Pass"}`
	req := httptest.NewRequest(http.MethodPost, "/briefings/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var env briefing.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if env.Cached {
		t.Error("cached = true for a fresh generation")
	}
}

func TestBriefingGenerate_StaleEnvelopePassedThrough(t *testing.T) {
	service := &mockBriefingService{
		generateFn: func(_ context.Context, _, _ string) (*briefing.Envelope, error) {
			return &briefing.Envelope{
				Briefing:         sampleBriefing(),
				Cached:           false,
				StaleData:        true,
				DataAge:          108000000,
				StalenessWarning: "This data is 30 hours old and may not reflect current conditions. Check the official forecast before traveling.",
			}, nil
		},
	}
	router := newBriefingRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/briefings/generate",
		strings.NewReader(`{"center":"NWAC","zone":"Snoqualmie Pass"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"staleData":true`) {
		t.Errorf("body missing staleData flag: %s", body)
	}
	if !strings.Contains(body, `"dataAge":108000000`) {
		t.Errorf("body missing dataAge: %s", body)
	}
}

func TestBriefingGenerate_InvalidBody(t *testing.T) {
	service := &mockBriefingService{
		generateFn: func(_ context.Context, _, _ string) (*briefing.Envelope, error) {
			t.Fatal("service must not be called for an invalid body")
			return nil, nil
		},
	}
	router := newBriefingRouter(service)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"center":`, "validation_invalid_json"},
		{"empty body", ``, "validation_invalid_json"},
		{"unknown field", `{"center":"NWAC","zone":"x","extra":true}`, "validation_invalid_json"},
		{"missing zone", `{"center":"NWAC"}`, string(types.ErrCodeValidationMissingField)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/briefings/generate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp := decodeErrorResponse(t, rec.Body); resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestBriefingGenerate_UpstreamErrorIs502(t *testing.T) {
	service := &mockBriefingService{
		generateFn: func(_ context.Context, _, _ string) (*briefing.Envelope, error) {
			return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "avalanche.org unavailable", nil)
		},
	}
	router := newBriefingRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/briefings/generate",
		strings.NewReader(`{"center":"NWAC","zone":"Snoqualmie Pass"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestBriefingRegenerate(t *testing.T) {
	const message = "Old briefing deleted. Refresh to generate a new one."
	service := &mockBriefingService{
		regenerateFn: func(_ context.Context, center, zone string) (string, error) {
			if center != "NWAC" || zone != "Snoqualmie Pass" {
				t.Errorf("service received (%q, %q)", center, zone)
			}
			return message, nil
		},
	}
	router := newBriefingRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/briefings/regenerate",
		strings.NewReader(`{"center":"NWAC","zone":"Snoqualmie Pass"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp regenerateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != message {
		t.Errorf("message = %q, want %q", resp.Message, message)
	}
}
