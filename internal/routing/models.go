// Package routing plans candidate routes for a ride and ranks them by
// safety.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider computes road paths between two points.
type Provider interface {
	// GetDirections returns one or more candidate paths.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Profile is a provider routing profile.
type Profile string

// ProfileDriving routes for cars.
const ProfileDriving Profile = "driving-car"

// DirectionsRequest is the request for computing paths.
type DirectionsRequest struct {
	Origin          geo.Location
	Destination     geo.Location
	Profile         Profile
	MaxAlternatives int
}

// DirectionsResponse holds the candidate paths from a provider.
type DirectionsResponse struct {
	Paths     []Path
	Provider  string
	FetchedAt time.Time
}

// Path is an unscored provider path. Waypoints are ordered from origin to
// destination.
type Path struct {
	Waypoints       []geo.Location
	DistanceMeters  float64
	DurationSeconds float64
	Summary         string
}

// Route is a scored route option. Once confirmed for a session its identity
// and waypoints never change.
type Route struct {
	ID              string         `json:"id"`
	Waypoints       []geo.Location `json:"waypoints"`
	SafetyScore     float64        `json:"safetyScore"`
	DistanceMeters  float64        `json:"distance"`
	DurationMinutes float64        `json:"estimatedDuration"`
	HighRiskZones   []hazard.Zone  `json:"highRiskZones"`
	Summary         string         `json:"summary,omitempty"`
	Provider        string         `json:"provider"`
}

// Clone returns a deep copy of r.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	c := *r
	c.Waypoints = append([]geo.Location(nil), r.Waypoints...)
	c.HighRiskZones = append([]hazard.Zone(nil), r.HighRiskZones...)
	return &c
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
