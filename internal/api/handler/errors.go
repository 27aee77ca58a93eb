package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/response"
	"github.com/saferide/saferide/internal/community"
	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/hazard"
	"github.com/saferide/saferide/internal/monitor"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/internal/session"
)

// writeError maps a domain error onto a problem response. Unknown errors are
// logged and reported as 500 without leaking detail.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, escalation.ErrDispatchNotFound),
		errors.Is(err, community.ErrReportNotFound),
		errors.Is(err, hazard.ErrZoneNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, monitor.ErrRouteNotFound):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, monitor.ErrSessionNotActive),
		errors.Is(err, monitor.ErrNoConfirmedRoute):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, monitor.ErrInvalidLocation),
		errors.Is(err, monitor.ErrInvalidScore),
		errors.Is(err, routing.ErrInvalidCoordinates),
		errors.Is(err, community.ErrInvalidType):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, routing.ErrProviderUnavailable),
		errors.Is(err, routing.ErrRateLimitExceeded):
		response.BadGateway(w, r, err.Error())
	default:
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
