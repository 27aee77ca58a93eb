package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/middleware"
	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/api/response"
	"github.com/saferide/saferide/internal/monitor"
)

// AdminHandler handles operator-only testing endpoints.
type AdminHandler struct {
	support *monitor.TestSupport
	enabled bool
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler. Forced threat levels are
// rejected unless enabled is set.
func NewAdminHandler(support *monitor.TestSupport, enabled bool, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{support: support, enabled: enabled, logger: logger}
}

// ForceThreat handles POST /v1/admin/testing/sessions/{sessionId}/forced-threat.
func (h *AdminHandler) ForceThreat(w http.ResponseWriter, r *http.Request) {
	if !h.enabled || h.support == nil {
		response.Forbidden(w, r, "forced threat levels are disabled")
		return
	}

	var req models.ForcedThreatRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	id := chi.URLParam(r, "sessionId")
	result, err := h.support.ForceThreatLevel(r.Context(), id, optionalLocation(req.Location, nowUTC()), req.Score)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Warn().
		Str("session_id", id).
		Str("operator", middleware.GetOperator(r.Context())).
		Float64("score", req.Score).
		Msg("forced threat level applied")

	response.JSON(w, r, http.StatusOK, assessmentResponse(id, result))
}
