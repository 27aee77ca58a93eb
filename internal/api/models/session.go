package models

import (
	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

// EmergencyContact is a contact supplied when a session is created.
type EmergencyContact struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship,omitempty" validate:"max=50"`
}

// VehicleInfo describes the ride vehicle.
type VehicleInfo struct {
	Make         string `json:"make,omitempty" validate:"max=50"`
	Model        string `json:"model,omitempty" validate:"max=50"`
	Color        string `json:"color,omitempty" validate:"max=30"`
	LicensePlate string `json:"licensePlate,omitempty" validate:"max=20"`
	DriverName   string `json:"driverName,omitempty" validate:"max=100"`
}

// CreateSessionRequest starts a new monitored ride.
type CreateSessionRequest struct {
	Source            Location           `json:"source"`
	Destination       Location           `json:"destination"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts" validate:"max=10,dive"`
	VehicleInfo       *VehicleInfo       `json:"vehicleInfo,omitempty"`
	Alternatives      int                `json:"alternatives,omitempty" validate:"gte=0,lte=5"`
}

// Contacts converts the request contacts to domain contacts.
func (r CreateSessionRequest) Contacts() []session.EmergencyContact {
	out := make([]session.EmergencyContact, 0, len(r.EmergencyContacts))
	for _, c := range r.EmergencyContacts {
		out = append(out, session.EmergencyContact{
			Name:         c.Name,
			Phone:        c.Phone,
			Email:        c.Email,
			Relationship: c.Relationship,
		})
	}
	return out
}

// Vehicle converts the request vehicle to the domain type.
func (r CreateSessionRequest) Vehicle() *session.VehicleInfo {
	if r.VehicleInfo == nil {
		return nil
	}
	v := session.VehicleInfo(*r.VehicleInfo)
	return &v
}

// ConfirmRouteRequest selects one of the planned routes. An empty route ID
// selects the safest option.
type ConfirmRouteRequest struct {
	RouteID string `json:"routeId,omitempty" validate:"max=64"`
}

// LocationUpdateRequest submits a location sample.
type LocationUpdateRequest struct {
	Location        Location `json:"location"`
	LocationEnabled *bool    `json:"locationEnabled,omitempty"`
}

// EmergencyRequest is a rider panic. The location is optional.
type EmergencyRequest struct {
	Location *Location `json:"location,omitempty"`
}

// ForcedThreatRequest pins a session's threat score for drills.
type ForcedThreatRequest struct {
	Score    float64   `json:"score" validate:"gte=0,lte=1"`
	Location *Location `json:"location,omitempty"`
}

// AssessmentResponse is the outcome of a location or emergency update.
type AssessmentResponse struct {
	SessionID         string             `json:"sessionId"`
	Assessment        threat.Assessment  `json:"assessment"`
	DistanceFromRoute float64            `json:"distanceFromRoute"`
	IsDeviated        bool               `json:"isDeviated"`
	Escalation        *escalation.Result `json:"escalation,omitempty"`
}
