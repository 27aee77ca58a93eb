// Package main provides the entrypoint for the SafeRide worker. The worker
// ingests device telemetry from Pub/Sub and sweeps sessions whose devices
// stopped reporting. It also exposes health endpoints for Cloud Run.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/saferide/saferide/internal/api/handler"
	"github.com/saferide/saferide/internal/app"
	"github.com/saferide/saferide/internal/config"
	"github.com/saferide/saferide/internal/telemetry"
	"github.com/saferide/saferide/internal/worker"
)

const serviceName = "saferide-worker"

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := app.NewBootLogger(os.Stderr, serviceName)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := app.NewLogger(cfg.Log, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SafeRide worker")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg, serviceName, Version))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Store.Driver == config.StoreMemory {
		log.Warn().Msg("worker is using the in-memory store and will not see API sessions")
	}

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to release resources")
		}
	}()

	var db handler.Pinger
	if services.Pool != nil {
		db = services.Pool
	}
	ops := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Database:  db,
		Providers: services.Providers,
		Logger:    log,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config:  worker.SweepConfigFrom(cfg.Worker),
		Sweeper: services.Monitor,
		Logger:  log.With().Str("job", "sweep").Logger(),
	})
	g.Go(func() error {
		return ignoreCanceled(sweep.Start(gctx))
	})

	if cfg.PubSub.ProjectID != "" {
		sub, err := worker.NewPubSubHandler(gctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.LocationSubscription,
			MaxOutstanding:   cfg.Worker.MaxOutstanding,
			Handler:          worker.NewHandler(services.Monitor, log),
			Logger:           log,
		})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := sub.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub subscriber")
			}
		}()
		g.Go(func() error {
			return ignoreCanceled(sub.Start(gctx))
		})
	} else {
		log.Warn().Msg("pubsub project not configured - device telemetry is only accepted over HTTP")
	}

	err = g.Wait()
	log.Info().Interface("sweep_metrics", sweep.MetricsSnapshot()).Msg("worker shutting down")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
