// Package monitor runs live ride monitoring: it owns session state, feeds
// location samples through threat assessment and hands qualifying results
// to the escalation orchestrator.
package monitor

import (
	"context"
	"errors"

	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

// Service errors.
var (
	ErrSessionNotActive = errors.New("session is not being monitored")
	ErrNoConfirmedRoute = errors.New("session has no confirmed route")
	ErrRouteNotFound    = errors.New("route is not one of the session's options")
	ErrInvalidLocation  = errors.New("invalid location")
	ErrInvalidScore     = errors.New("forced score must be within [0, 1]")
)

// CreateInput describes a new ride.
type CreateInput struct {
	Source            geo.Location
	Destination       geo.Location
	EmergencyContacts []session.EmergencyContact
	VehicleInfo       *session.VehicleInfo
	// Alternatives is the number of alternative routes to request.
	Alternatives int
}

// Update is one location sample from the rider's device.
type Update struct {
	Location        geo.Location
	LocationEnabled bool
}

// UpdateResult is the outcome of evaluating a session.
type UpdateResult struct {
	Assessment        threat.Assessment  `json:"assessment"`
	DistanceFromRoute float64            `json:"distanceFromRoute"`
	IsDeviated        bool               `json:"isDeviated"`
	Escalation        *escalation.Result `json:"escalation,omitempty"`
}

// SweepResult summarises one SweepStale pass.
type SweepResult struct {
	Evaluated int
	Escalated int
	Failed    int
}

// Planner produces scored route options.
type Planner interface {
	Plan(ctx context.Context, req routing.PlanRequest) (*routing.Plan, error)
}

// ZoneSource lists the current high-risk zones.
type ZoneSource interface {
	List(ctx context.Context) ([]hazard.Zone, error)
}
