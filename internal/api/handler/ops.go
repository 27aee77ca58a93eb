// Package handler provides HTTP handlers for the SafeRide API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/api/response"
	"github.com/saferide/saferide/internal/provider/resilience"
)

// readyTimeout bounds dependency checks in the readiness probe.
const readyTimeout = 2 * time.Second

// Pinger checks connectivity to a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandlerConfig configures the OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	// Database is pinged by the readiness probe when set.
	Database Pinger
	// Providers reports upstream provider health for the status endpoint.
	Providers *resilience.Registry
	Logger    zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsHandlerConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if h.cfg.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.cfg.Database.Ping(ctx); err != nil {
			h.cfg.Logger.Warn().Err(err).Msg("readiness check: database unreachable")
			health.Status = models.HealthStatusFail
			health.Details = map[string]any{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Database != nil {
		sub := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		if err := h.cfg.Database.Ping(ctx); err != nil {
			sub.Status = models.HealthStatusFail
			sub.Detail = err.Error()
			status.Status = models.HealthStatusDegraded
		}
		cancel()
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.cfg.Providers != nil {
		for _, health := range h.cfg.Providers.GetAllHealth() {
			ps := providerStatus(health)
			switch {
			case health.Critical && health.IsUnhealthy():
				status.Status = models.HealthStatusFail
			case ps.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK:
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(h *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     h.Name,
		Status:       models.HealthStatusOK,
		CircuitState: h.CircuitState.String(),
		Critical:     h.Critical,
		Message:      h.LastError,
	}
	switch {
	case h.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case h.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if h.LastSuccessAt != nil {
		ts := models.Timestamp(*h.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if h.LastFailureAt != nil {
		ts := models.Timestamp(*h.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	return ps
}
