// Package session models a monitored ride and its persistence.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/routing"
	"github.com/saferide/saferide/internal/threat"
	"github.com/saferide/saferide/pkg/ring"
)

// Repository errors.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

// Default history capacities.
const (
	DefaultLocationHistory = 100
	DefaultThreatHistory   = 50
)

// Limits bounds the per-session histories.
type Limits struct {
	LocationHistory int
	ThreatHistory   int
}

// DefaultLimits returns the default history capacities.
func DefaultLimits() Limits {
	return Limits{
		LocationHistory: DefaultLocationHistory,
		ThreatHistory:   DefaultThreatHistory,
	}
}

// EmergencyContact is someone to alert when a ride escalates. Notified flips
// to true at most once per dispatch and never reverts.
type EmergencyContact struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Relationship string     `json:"relationship,omitempty"`
	Notified     bool       `json:"notified"`
	NotifiedAt   *time.Time `json:"notifiedAt,omitempty"`
}

// CanEmail reports whether the contact has a usable email address.
func (c EmergencyContact) CanEmail() bool {
	email := strings.TrimSpace(c.Email)
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1
}

// VehicleInfo describes the ride vehicle, when known.
type VehicleInfo struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Color        string `json:"color,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	DriverName   string `json:"driverName,omitempty"`
}

// RideSession aggregates everything monitored for one ride. The server owns
// this state; callers never supply it.
type RideSession struct {
	ID                string                          `json:"id"`
	Source            geo.Location                    `json:"source"`
	Destination       geo.Location                    `json:"destination"`
	ConfirmedRoute    *routing.Route                  `json:"confirmedRoute,omitempty"`
	AlternativeRoutes []routing.Route                 `json:"alternativeRoutes,omitempty"`
	StartTime         *time.Time                      `json:"startTime,omitempty"`
	Status            Status                          `json:"status"`
	LocationHistory   *ring.Buffer[geo.Location]      `json:"locationHistory"`
	ThreatHistory     *ring.Buffer[threat.Assessment] `json:"threatHistory"`
	DeviationHistory  []threat.DeviationPoint         `json:"deviationHistory"`
	LastUpdateAt      time.Time                       `json:"lastUpdateAt"`
	LocationEnabled   bool                            `json:"locationEnabled"`
	EmergencyContacts []EmergencyContact              `json:"emergencyContacts"`
	VehicleInfo       *VehicleInfo                    `json:"vehicleInfo,omitempty"`
	DispatchID        string                          `json:"dispatchId,omitempty"`
	CreatedAt         time.Time                       `json:"createdAt"`
	UpdatedAt         time.Time                       `json:"updatedAt"`
}

// New creates a session in setup with empty histories sized by limits.
func New(id string, source, destination geo.Location, limits Limits, now time.Time) *RideSession {
	return &RideSession{
		ID:              id,
		Source:          source,
		Destination:     destination,
		Status:          StatusSetup,
		LocationHistory: ring.New[geo.Location](limits.LocationHistory),
		ThreatHistory:   ring.New[threat.Assessment](limits.ThreatHistory),
		LocationEnabled: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// empty returns a session with histories allocated for decoding.
func empty(limits Limits) *RideSession {
	return &RideSession{
		LocationHistory: ring.New[geo.Location](limits.LocationHistory),
		ThreatHistory:   ring.New[threat.Assessment](limits.ThreatHistory),
	}
}

// LastLocation returns the most recent recorded location.
func (s *RideSession) LastLocation() (geo.Location, bool) {
	return s.LocationHistory.Last()
}

// Transition moves the session to next if the status table allows it.
func (s *RideSession) Transition(next Status, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return &TransitionError{From: s.Status, To: next}
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of s.
func (s *RideSession) Clone() *RideSession {
	c := *s
	c.ConfirmedRoute = s.ConfirmedRoute.Clone()
	if s.AlternativeRoutes != nil {
		c.AlternativeRoutes = make([]routing.Route, len(s.AlternativeRoutes))
		for i := range s.AlternativeRoutes {
			c.AlternativeRoutes[i] = *s.AlternativeRoutes[i].Clone()
		}
	}
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.LocationHistory != nil {
		c.LocationHistory = s.LocationHistory.Clone()
	}
	if s.ThreatHistory != nil {
		c.ThreatHistory = s.ThreatHistory.Clone()
	}
	c.DeviationHistory = append([]threat.DeviationPoint(nil), s.DeviationHistory...)
	if s.EmergencyContacts != nil {
		c.EmergencyContacts = make([]EmergencyContact, len(s.EmergencyContacts))
		for i, contact := range s.EmergencyContacts {
			if contact.NotifiedAt != nil {
				t := *contact.NotifiedAt
				contact.NotifiedAt = &t
			}
			c.EmergencyContacts[i] = contact
		}
	}
	if s.VehicleInfo != nil {
		v := *s.VehicleInfo
		c.VehicleInfo = &v
	}
	return &c
}

// TransitionError reports a disallowed status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return "cannot move session from " + string(e.From) + " to " + string(e.To)
}

// Unwrap allows errors.Is(err, ErrInvalidTransition).
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
