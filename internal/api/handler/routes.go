package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/api/response"
	"github.com/saferide/saferide/internal/monitor"
	"github.com/saferide/saferide/internal/routing"
)

// RouteHandler handles route planning.
type RouteHandler struct {
	planner monitor.Planner
	logger  zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(planner monitor.Planner, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{planner: planner, logger: logger}
}

// PlanRoutes handles POST /v1/routes:plan - scored route options, safest first.
func (h *RouteHandler) PlanRoutes(w http.ResponseWriter, r *http.Request) {
	var req models.PlanRoutesRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	now := nowUTC()
	plan, err := h.planner.Plan(r.Context(), routing.PlanRequest{
		Source:       req.Source.ToGeo(now),
		Destination:  req.Destination.ToGeo(now),
		Alternatives: req.Alternatives,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, plan)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
