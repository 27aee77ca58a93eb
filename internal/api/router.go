// Package api provides the HTTP API for SafeRide.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/handler"
	"github.com/saferide/saferide/internal/api/middleware"
	"github.com/saferide/saferide/internal/auth"
	"github.com/saferide/saferide/internal/community"
	"github.com/saferide/saferide/internal/hazard"
	"github.com/saferide/saferide/internal/monitor"
	"github.com/saferide/saferide/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// RequireTLS rejects plain-HTTP forwarded requests.
	RequireTLS bool
	// RateLimit is requests per minute per client IP; 0 uses the default.
	RateLimit int

	Monitor   *monitor.Service
	Planner   monitor.Planner
	Community *community.Service
	Hazards   hazard.Repository

	// Tokens validates operator tokens for admin endpoints. Admin endpoints
	// reject every request when nil.
	Tokens *auth.TokenService
	// ForcedThreatEnabled exposes the forced-threat testing endpoint.
	ForcedThreatEnabled bool

	Database  handler.Pinger
	Providers *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "saferide-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Providers: cfg.Providers,
		Logger:    cfg.Logger,
	})
	sessionHandler := handler.NewSessionHandler(cfg.Monitor, cfg.Logger)
	routeHandler := handler.NewRouteHandler(cfg.Planner, cfg.Logger)
	communityHandler := handler.NewCommunityHandler(cfg.Community, cfg.Hazards, cfg.Logger)
	adminHandler := handler.NewAdminHandler(monitor.NewTestSupport(cfg.Monitor), cfg.ForcedThreatEnabled, cfg.Logger)

	// A nil *TokenService must reach the middleware as a nil interface.
	var tokens middleware.RoleValidator
	if cfg.Tokens != nil {
		tokens = cfg.Tokens
	}
	adminAuth := middleware.AdminAuth(tokens)

	standard := middleware.StandardRateLimit
	if cfg.RateLimit > 0 {
		standard = middleware.RateLimitConfig{RequestLimit: cfg.RateLimit, WindowLength: time.Minute}
	}
	standardRateLimit := middleware.RateLimitByIP(standard)
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	sessionRateLimit := middleware.RateLimitBySession(middleware.SessionRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Route planning hits the external provider.
		r.With(expensiveRateLimit).Post("/routes:plan", routeHandler.PlanRoutes)

		r.With(standardRateLimit).Get("/hazards", communityHandler.ListHazards)

		r.Route("/community/reports", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", communityHandler.ListReports)
			r.Post("/", communityHandler.SubmitReport)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(expensiveRateLimit).Post("/", sessionHandler.CreateSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Use(sessionRateLimit)
				r.Get("/", sessionHandler.GetSession)
				r.Post("/route", sessionHandler.ConfirmRoute)
				r.Post("/locations", sessionHandler.UpdateLocation)
				r.Post("/location-disabled", sessionHandler.LocationDisabled)
				r.Post("/emergency", sessionHandler.TriggerEmergency)
				r.Post("/complete", sessionHandler.CompleteSession)
				r.Post("/cancel", sessionHandler.CancelSession)
			})
		})

		r.With(standardRateLimit).Get("/dispatches/{dispatchId}", sessionHandler.GetDispatch)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(standardRateLimit)
			r.Post("/testing/sessions/{sessionId}/forced-threat", adminHandler.ForceThreat)
		})
	})

	return r
}
