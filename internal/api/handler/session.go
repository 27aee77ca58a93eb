package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/api/response"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/monitor"
)

// SessionHandler handles ride session endpoints.
type SessionHandler struct {
	monitor *monitor.Service
	logger  zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc *monitor.Service, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		monitor: svc,
		logger:  logger,
	}
}

// CreateSession handles POST /v1/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	now := nowUTC()
	sess, err := h.monitor.CreateSession(r.Context(), monitor.CreateInput{
		Source:            req.Source.ToGeo(now),
		Destination:       req.Destination.ToGeo(now),
		EmergencyContacts: req.Contacts(),
		VehicleInfo:       req.Vehicle(),
		Alternatives:      req.Alternatives,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, "/v1/sessions/"+sess.ID, sess)
}

// GetSession handles GET /v1/sessions/{sessionId}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.monitor.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sess)
}

// ConfirmRoute handles POST /v1/sessions/{sessionId}/route.
func (h *SessionHandler) ConfirmRoute(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRouteRequest
	if !response.Decode(w, r, &req, true) {
		return
	}

	sess, err := h.monitor.ConfirmRoute(r.Context(), chi.URLParam(r, "sessionId"), req.RouteID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sess)
}

// UpdateLocation handles POST /v1/sessions/{sessionId}/locations.
func (h *SessionHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.LocationUpdateRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	// A sample flagged disabled is still recorded; only the flag changes.
	id := chi.URLParam(r, "sessionId")
	result, err := h.monitor.UpdateLocation(r.Context(), id, monitor.Update{
		Location:        req.Location.ToGeo(nowUTC()),
		LocationEnabled: req.LocationEnabled == nil || *req.LocationEnabled,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, assessmentResponse(id, result))
}

// LocationDisabled handles POST /v1/sessions/{sessionId}/location-disabled.
func (h *SessionHandler) LocationDisabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	result, err := h.monitor.ReportLocationDisabled(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, assessmentResponse(id, result))
}

// TriggerEmergency handles POST /v1/sessions/{sessionId}/emergency.
func (h *SessionHandler) TriggerEmergency(w http.ResponseWriter, r *http.Request) {
	var req models.EmergencyRequest
	if !response.Decode(w, r, &req, true) {
		return
	}

	id := chi.URLParam(r, "sessionId")
	result, err := h.monitor.TriggerEmergency(r.Context(), id, optionalLocation(req.Location, nowUTC()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Warn().Str("session_id", id).Msg("rider triggered emergency")
	response.JSON(w, r, http.StatusOK, assessmentResponse(id, result))
}

// CompleteSession handles POST /v1/sessions/{sessionId}/complete.
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.monitor.CompleteSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sess)
}

// CancelSession handles POST /v1/sessions/{sessionId}/cancel.
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.monitor.CancelSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sess)
}

// GetDispatch handles GET /v1/dispatches/{dispatchId}.
func (h *SessionHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	d, err := h.monitor.Dispatch(r.Context(), chi.URLParam(r, "dispatchId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, d)
}

func assessmentResponse(id string, result *monitor.UpdateResult) models.AssessmentResponse {
	return models.AssessmentResponse{
		SessionID:         id,
		Assessment:        result.Assessment,
		DistanceFromRoute: result.DistanceFromRoute,
		IsDeviated:        result.IsDeviated,
		Escalation:        result.Escalation,
	}
}

func optionalLocation(l *models.Location, now time.Time) *geo.Location {
	if l == nil {
		return nil
	}
	loc := l.ToGeo(now)
	return &loc
}
