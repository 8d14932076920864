// Package handlers implements the HTTP handlers for the snowbrief v1 API:
// briefing synthesis, raw forecast listings, and weather snapshots. Handlers
// depend on narrow service interfaces and register their routes through the
// core registrar mechanism.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snowbrief/internal/briefing"
	"snowbrief/internal/core"
)

// BriefingService is the synthesis pipeline surface the handler depends on.
type BriefingService interface {
	GetBriefing(ctx context.Context, center, zone string) (*briefing.Envelope, error)
	GenerateBriefing(ctx context.Context, center, zone string) (*briefing.Envelope, error)
	RegenerateBriefing(ctx context.Context, center, zone string) (string, error)
}

// BriefingHandler exposes the briefing endpoints.
type BriefingHandler struct {
	Service   BriefingService
	Validator *core.Validator
	Logger    *slog.Logger
}

// NewBriefingHandler creates a BriefingHandler.
func NewBriefingHandler(service BriefingService, validator *core.Validator, logger *slog.Logger) *BriefingHandler {
	return &BriefingHandler{Service: service, Validator: validator, Logger: logger}
}

// briefingKeyRequest identifies one briefing: a forecast center and one of
// its zones. The forecast date is always "today" server-side.
type briefingKeyRequest struct {
	Center string `json:"center" validate:"required"`
	Zone   string `json:"zone" validate:"required"`
}

// regenerateResponse acknowledges a briefing deletion.
type regenerateResponse struct {
	Message string `json:"message"`
}

// RegisterRoutes mounts the briefing endpoints under /briefings.
func (h *BriefingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/briefings", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/generate", h.Generate)
		r.Post("/regenerate", h.Regenerate)
	})
}

// Get handles GET /v1/briefings?center=&zone=. A missing briefing is a 200
// with a null briefing field; clients poll this before deciding to generate.
func (h *BriefingHandler) Get(w http.ResponseWriter, r *http.Request) {
	center := r.URL.Query().Get("center")
	zone := r.URL.Query().Get("zone")

	envelope, err := h.Service.GetBriefing(r.Context(), center, zone)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, envelope)
}

// Generate handles POST /v1/briefings/generate. Returns the existing briefing
// when one is already stored for today (cached=true), otherwise synthesizes a
// new one.
func (h *BriefingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req briefingKeyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.Validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	envelope, err := h.Service.GenerateBriefing(r.Context(), req.Center, req.Zone)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, envelope)
}

// Regenerate handles POST /v1/briefings/regenerate: it deletes today's
// briefing so the next generate call produces a fresh one.
func (h *BriefingHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req briefingKeyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.Validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	message, err := h.Service.RegenerateBriefing(r.Context(), req.Center, req.Zone)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, regenerateResponse{Message: message})
}
