// Package app assembles the SafeRide services from configuration. Both the
// API server and the worker build their dependency graph here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/auth"
	"github.com/saferide/saferide/internal/community"
	"github.com/saferide/saferide/internal/config"
	"github.com/saferide/saferide/internal/database"
	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/hazard"
	"github.com/saferide/saferide/internal/monitor"
	"github.com/saferide/saferide/internal/provider/resilience"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/internal/routing/openrouteservice"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

// App holds the wired services.
type App struct {
	Monitor   *monitor.Service
	Planner   *routing.Service
	Community *community.Service
	Hazards   hazard.Repository
	Providers *resilience.Registry
	Metrics   *monitor.Metrics

	// Tokens is nil when no admin signing key is configured.
	Tokens *auth.TokenService

	// Pool is nil for the in-memory store.
	Pool *pgxpool.Pool

	publisher *escalation.PubSubPublisher
	logger    zerolog.Logger
}

// NewLogger builds the service logger from the log section.
func NewLogger(cfg config.LogConfig, service, version string) zerolog.Logger {
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.Level(cfg.ZerologLevel()).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// NewBootLogger is used before configuration is loaded.
func NewBootLogger(w io.Writer, service string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// New wires every service described by cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Providers: resilience.NewRegistry(),
		logger:    log,
	}

	metrics, err := monitor.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("initializing monitor metrics: %w", err)
	}
	a.Metrics = metrics

	var (
		sessions   session.Store
		dispatches escalation.DispatchRepository
	)
	limits := session.Limits{
		LocationHistory: cfg.Monitor.LocationHistory,
		ThreatHistory:   cfg.Monitor.ThreatHistory,
	}
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.Pool = pool
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrating database: %w", err)
			}
		}
		sessions = session.NewPostgresRepository(pool, limits)
		dispatches = escalation.NewPostgresRepository(pool)
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	default:
		sessions = session.NewInMemoryRepository()
		dispatches = escalation.NewInMemoryRepository()
		log.Warn().Msg("using in-memory store, sessions do not survive restarts")
	}

	a.Hazards = hazard.NewInMemoryRepository(cfg.Hazards.HazardZones())
	a.Community = community.NewService(community.NewInMemoryRepository(), community.ServiceConfig{Logger: log})

	var provider routing.Provider
	if cfg.Routing.Provider == config.RoutingOpenRouteService {
		provider = openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.Routing.ORSAPIKey,
			BaseURL:  cfg.Routing.ORSBaseURL,
			Timeout:  cfg.Routing.Timeout,
			Registry: a.Providers,
			Logger:   log,
		})
	}
	a.Planner = routing.NewService(routing.ServiceConfig{
		Provider:     provider,
		Zones:        a.Hazards,
		Reports:      a.Community,
		Alternatives: cfg.Routing.Alternatives,
		CacheTTL:     cfg.Routing.CacheTTL,
		Logger:       log,
	})

	var notifier escalation.Notifier = &escalation.LogNotifier{Logger: log}
	if cfg.Notify.Kind == config.NotifyHTTP {
		notifier = escalation.NewHTTPNotifier(escalation.HTTPNotifierConfig{
			URL:      cfg.Notify.URL,
			APIKey:   cfg.Notify.APIKey,
			Timeout:  cfg.Notify.Timeout,
			Registry: a.Providers,
			Logger:   log,
		})
	}

	var publisher escalation.EventPublisher = escalation.NopPublisher{}
	if cfg.PubSub.ProjectID != "" {
		p, err := escalation.NewPubSubPublisher(ctx, escalation.PubSubPublisherConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.DispatchTopic,
			Logger:    log,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating dispatch publisher: %w", err)
		}
		a.publisher = p
		publisher = p
	}

	orchestrator := escalation.NewOrchestrator(escalation.OrchestratorConfig{
		Notifier:          notifier,
		Dispatches:        dispatches,
		Publisher:         publisher,
		Observer:          metrics,
		NotifyTimeout:     cfg.Monitor.NotifyTimeout,
		NotifyConcurrency: cfg.Monitor.NotifyConcurrency,
		MaxLiveUpdates:    cfg.Monitor.ThreatHistory,
		Logger:            log,
	})

	a.Monitor = monitor.NewService(monitor.ServiceConfig{
		Store:        sessions,
		Planner:      a.Planner,
		Zones:        a.Hazards,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Limits:       limits,
		Deviation: threat.DeviationConfig{
			MergeGap:  cfg.Monitor.DeviationMergeGap,
			Retention: cfg.Monitor.DeviationRetention,
		},
		Logger: log,
	})

	if cfg.Admin.JWTSigningKey != "" {
		a.Tokens = auth.NewTokenService(auth.TokenConfig{
			SigningKey: cfg.Admin.JWTSigningKey,
			Issuer:     cfg.Admin.JWTIssuer,
		})
	}

	return a, nil
}

// Close releases the database pool and the Pub/Sub client.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing dispatch publisher: %w", err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return errors.Join(errs...)
}
