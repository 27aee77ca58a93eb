// Package main provides the entrypoint for the SafeRide API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/saferide/saferide/internal/api"
	"github.com/saferide/saferide/internal/api/handler"
	"github.com/saferide/saferide/internal/api/middleware"
	"github.com/saferide/saferide/internal/app"
	"github.com/saferide/saferide/internal/config"
	"github.com/saferide/saferide/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "saferide-api"

	cfg, err := config.Load()
	if err != nil {
		boot := app.NewBootLogger(os.Stderr, serviceName)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := app.NewLogger(cfg.Log, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting SafeRide API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to release resources")
		}
	}()

	if services.Tokens == nil {
		log.Warn().Msg("admin signing key not configured - admin endpoints will reject every request")
	}
	if cfg.Admin.ForcedThreatEnabled {
		log.Warn().Msg("forced threat levels enabled - do not run this configuration in production")
	}

	var db handler.Pinger
	if services.Pool != nil {
		db = services.Pool
	}

	router := api.NewRouter(api.RouterConfig{
		Version:             Version,
		BuildTime:           BuildTime,
		Logger:              log,
		ServiceName:         serviceName,
		Metrics:             metrics,
		RequireTLS:          cfg.Server.RequireTLS,
		RateLimit:           cfg.Server.RateLimit,
		Monitor:             services.Monitor,
		Planner:             services.Planner,
		Community:           services.Community,
		Hazards:             services.Hazards,
		Tokens:              services.Tokens,
		ForcedThreatEnabled: cfg.Admin.ForcedThreatEnabled,
		Database:            db,
		Providers:           services.Providers,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
