// Command api runs the snowbrief HTTP service: avalanche briefing synthesis
// backed by avalanche.org forecasts, Open-Meteo weather, and a generative
// text model.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"snowbrief/internal/api/handlers"
	"snowbrief/internal/briefing"
	"snowbrief/internal/cache"
	"snowbrief/internal/config"
	"snowbrief/internal/core"
	"snowbrief/internal/db"
	"snowbrief/internal/external"
	"snowbrief/internal/types"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting snowbrief api",
		"environment", cfg.Environment, "port", cfg.Server.Port,
		"prompt_style", cfg.Briefing.PromptStyle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The weather cache is best-effort; a dead Redis degrades to
		// per-request fetches rather than blocking startup.
		logger.Warn("redis unreachable at startup, weather cache degraded", "error", err)
	}

	clock := types.RealClock{}

	avalancheClient := external.NewAvalancheClient(cfg.Forecast, logger)
	weatherClient := external.NewOpenMeteoClient(cfg.Weather, clock)
	geminiClient := external.NewGeminiClient(cfg.AI)

	briefingRepo := db.NewBriefingRepository(pool)
	forecastRepo := db.NewForecastRepository(pool)
	weatherCache := cache.NewWeatherCache(rdb, cfg.Weather.CacheTTL, logger)

	synthesizer := briefing.NewSynthesizer(
		avalancheClient, weatherClient, geminiClient,
		briefingRepo, forecastRepo, weatherCache,
		cfg.Briefing, clock, logger,
	)

	server, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	briefingHandler := handlers.NewBriefingHandler(synthesizer, server.Validator, logger)
	forecastHandler := handlers.NewForecastHandler(avalancheClient, clock, logger)
	weatherHandler := handlers.NewWeatherHandler(weatherClient, weatherCache, clock, logger)

	server.V1RouteRegistrars = []core.RouteRegistrar{
		briefingHandler.RegisterRoutes,
		forecastHandler.RegisterRoutes,
		weatherHandler.RegisterRoutes,
	}
	server.HealthProbes = []core.HealthProbe{
		&db.PoolProbe{Pool: pool},
		&cache.Probe{Client: rdb},
	}
	server.MountRoutes()

	server.OnShutdown(func(context.Context) error {
		pool.Close()
		return nil
	})
	server.OnShutdown(func(context.Context) error {
		return rdb.Close()
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	return server.Shutdown(shutdownCtx)
}

// newLogger builds the structured JSON logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
