// Package config loads service configuration from defaults, an optional
// YAML file and SAFERIDE_* environment variables, in that order.
package config

import (
	"time"

	"github.com/saferide/saferide/internal/database"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Notifier kinds.
const (
	NotifyLog  = "log"
	NotifyHTTP = "http"
)

// Routing providers.
const (
	RoutingStraightLine     = "straight_line"
	RoutingOpenRouteService = "openrouteservice"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Database  database.Config `koanf:"database"`
	Store     StoreConfig     `koanf:"store"`
	Routing   RoutingConfig   `koanf:"routing"`
	Notify    NotifyConfig    `koanf:"notify"`
	Monitor   MonitorConfig   `koanf:"monitor"`
	PubSub    PubSubConfig    `koanf:"pubsub"`
	Admin     AdminConfig     `koanf:"admin"`
	Worker    WorkerConfig    `koanf:"worker"`
	Hazards   HazardsConfig   `koanf:"hazards"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Environment     string        `koanf:"environment"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per minute per client IP.
	RateLimit int `koanf:"rate_limit"`
	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool `koanf:"require_tls"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	// SampleRatio is the fraction of root traces sampled, in [0, 1].
	SampleRatio float64 `koanf:"sample_ratio"`
	// Insecure disables TLS to the collector (sidecar deployments).
	Insecure bool `koanf:"insecure"`
}

// StoreConfig selects the session and dispatch store.
type StoreConfig struct {
	Driver string `koanf:"driver"`
}

// RoutingConfig configures route planning.
type RoutingConfig struct {
	Provider     string        `koanf:"provider"`
	ORSAPIKey    string        `koanf:"ors_api_key"`
	ORSBaseURL   string        `koanf:"ors_base_url"`
	Alternatives int           `koanf:"alternatives"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	Timeout      time.Duration `koanf:"timeout"`
}

// NotifyConfig configures emergency contact notification.
type NotifyConfig struct {
	Kind    string        `koanf:"kind"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// MonitorConfig tunes live monitoring.
type MonitorConfig struct {
	LocationHistory    int           `koanf:"location_history"`
	ThreatHistory      int           `koanf:"threat_history"`
	NotifyTimeout      time.Duration `koanf:"notify_timeout"`
	NotifyConcurrency  int           `koanf:"notify_concurrency"`
	DeviationMergeGap  time.Duration `koanf:"deviation_merge_gap"`
	DeviationRetention time.Duration `koanf:"deviation_retention"`
}

// PubSubConfig configures Google Cloud Pub/Sub.
type PubSubConfig struct {
	ProjectID            string `koanf:"project_id"`
	DispatchTopic        string `koanf:"dispatch_topic"`
	LocationSubscription string `koanf:"location_subscription"`
}

// AdminConfig guards the test-support endpoints.
type AdminConfig struct {
	ForcedThreatEnabled bool   `koanf:"forced_threat_enabled"`
	JWTSigningKey       string `koanf:"jwt_signing_key"`
	JWTIssuer           string `koanf:"jwt_issuer"`
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	StaleAfter     time.Duration `koanf:"stale_after"`
	MaxOutstanding int           `koanf:"max_outstanding"`
}

// HazardsConfig is the static high-risk zone catalogue.
type HazardsConfig struct {
	Zones []ZoneConfig `koanf:"zones"`
}

// ZoneConfig is one configured high-risk zone.
type ZoneConfig struct {
	ID        string  `koanf:"id"`
	Lat       float64 `koanf:"lat"`
	Lng       float64 `koanf:"lng"`
	Radius    float64 `koanf:"radius"`
	RiskLevel float64 `koanf:"risk_level"`
	Reason    string  `koanf:"reason"`
}

// HazardZones converts the catalogue to hazard zones.
func (h HazardsConfig) HazardZones() []hazard.Zone {
	zones := make([]hazard.Zone, len(h.Zones))
	for i, z := range h.Zones {
		zones[i] = hazard.Zone{
			ID:        z.ID,
			Center:    geo.Location{Lat: z.Lat, Lng: z.Lng},
			Radius:    z.Radius,
			RiskLevel: z.RiskLevel,
			Reason:    z.Reason,
		}
	}
	return zones
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       120,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
			Insecure:     true,
		},
		Database: database.DefaultConfig(),
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		Routing: RoutingConfig{
			Provider:     RoutingStraightLine,
			Alternatives: 2,
			CacheTTL:     5 * time.Minute,
			Timeout:      10 * time.Second,
		},
		Notify: NotifyConfig{
			Kind:    NotifyLog,
			Timeout: 5 * time.Second,
		},
		Monitor: MonitorConfig{
			LocationHistory:    100,
			ThreatHistory:      50,
			NotifyTimeout:      10 * time.Second,
			NotifyConcurrency:  4,
			DeviationMergeGap:  20 * time.Second,
			DeviationRetention: 10 * time.Minute,
		},
		PubSub: PubSubConfig{
			DispatchTopic:        "saferide-dispatches",
			LocationSubscription: "saferide-locations",
		},
		Admin: AdminConfig{
			JWTIssuer: "saferide",
		},
		Worker: WorkerConfig{
			SweepInterval:  15 * time.Second,
			StaleAfter:     30 * time.Second,
			MaxOutstanding: 100,
		},
	}
}
