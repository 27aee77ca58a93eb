package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, errors.New("server.rate_limit must be positive"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.OTLPEndpoint == "" {
			errs = append(errs, errors.New("telemetry.otlp_endpoint is required when telemetry is enabled"))
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %g", c.Telemetry.SampleRatio))
		}
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("database.host and database.name are required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store.Driver))
	}

	switch c.Routing.Provider {
	case RoutingStraightLine:
	case RoutingOpenRouteService:
		if c.Routing.ORSAPIKey == "" {
			errs = append(errs, errors.New("routing.ors_api_key is required for openrouteservice"))
		}
	default:
		errs = append(errs, fmt.Errorf("routing.provider must be %q or %q, got %q",
			RoutingStraightLine, RoutingOpenRouteService, c.Routing.Provider))
	}
	if c.Routing.Alternatives < 0 {
		errs = append(errs, errors.New("routing.alternatives must not be negative"))
	}

	switch c.Notify.Kind {
	case NotifyLog:
	case NotifyHTTP:
		if c.Notify.URL == "" {
			errs = append(errs, errors.New("notify.url is required for the http notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.kind must be %q or %q, got %q", NotifyLog, NotifyHTTP, c.Notify.Kind))
	}

	if c.Monitor.LocationHistory <= 0 || c.Monitor.ThreatHistory <= 0 {
		errs = append(errs, errors.New("monitor history limits must be positive"))
	}
	if c.Monitor.NotifyTimeout <= 0 {
		errs = append(errs, errors.New("monitor.notify_timeout must be positive"))
	}
	if c.Worker.SweepInterval <= 0 || c.Worker.StaleAfter <= 0 {
		errs = append(errs, errors.New("worker.sweep_interval and worker.stale_after must be positive"))
	}

	if c.Admin.ForcedThreatEnabled && c.Admin.JWTSigningKey == "" {
		errs = append(errs, errors.New("admin.jwt_signing_key is required when forced threat levels are enabled"))
	}

	for i, z := range c.Hazards.Zones {
		if z.Radius <= 0 {
			errs = append(errs, fmt.Errorf("hazards.zones[%d]: radius must be positive", i))
		}
		if z.RiskLevel < 0 || z.RiskLevel > 1 {
			errs = append(errs, fmt.Errorf("hazards.zones[%d]: risk_level must be within [0, 1]", i))
		}
	}

	return errors.Join(errs...)
}

// ZerologLevel returns the configured zerolog level, defaulting to info.
func (c LogConfig) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
