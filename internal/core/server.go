// Package core provides the API chassis for the snowbrief service: a chi
// router with cross-cutting middleware (recovery, request IDs, logging, CORS)
// applied before requests reach domain handlers, plus the standard JSON
// response envelope and health check.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snowbrief/internal/config"
)

// RouteRegistrar mounts a group of domain routes onto the v1 router. Handlers
// register themselves through registrars so core never imports handler
// packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the chassis dependencies, allowing for easy injection
// during testing and distinct configuration for different environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// V1RouteRegistrars are populated by the application entry point before
	// MountRoutes is called.
	V1RouteRegistrars []RouteRegistrar

	// HealthProbes are checked by GET /health.
	HealthProbes []HealthProbe

	router *chi.Mux

	// closers are shut down in order during Shutdown (connection pools etc.).
	closers []func(context.Context) error
}

// NewServer initializes the chassis and prepares the server for route
// mounting. The caller is responsible for mounting routes (via MountRoutes)
// after registering handlers; this separation lets tests customize route
// registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers a resource teardown function invoked during Shutdown,
// in registration order.
func (s *Server) OnShutdown(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	for _, closer := range s.closers {
		if err := closer(ctx); err != nil {
			s.Logger.Error("error during resource shutdown", "error", err)
			return fmt.Errorf("closing resources: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
