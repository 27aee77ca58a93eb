// Package escalation turns qualifying threat assessments into dispatches:
// evidence capture, contact notification and the simulated emergency call.
package escalation

import (
	"errors"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

var (
	// ErrDispatchNotFound is returned when a dispatch does not exist.
	ErrDispatchNotFound = errors.New("dispatch not found")

	// ErrDispatchExists is returned when a session already has a different
	// dispatch. A session gets at most one.
	ErrDispatchExists = errors.New("session already has a dispatch")
)

// Action log entries reported in Result.Actions.
const (
	ActionLiveTracking      = "live_tracking_started"
	ActionContactNotified   = "contact_notified"
	ActionNotifyFailed      = "notify_failed"
	ActionEmergencyServices = "emergency_services_notified"
)

// EvidencePacket is the trip snapshot taken when a session first escalates.
// Only EmergencyContactsNotified grows afterwards.
type EvidencePacket struct {
	SessionID                 string                     `json:"sessionId"`
	Timestamp                 time.Time                  `json:"timestamp"`
	GPSHistory                []geo.Location             `json:"gpsHistory"`
	DeviationPoints           []threat.DeviationPoint    `json:"deviationPoints"`
	ThreatAssessments         []threat.Assessment        `json:"threatAssessments"`
	EscalationReason          string                     `json:"escalationReason"`
	VehicleInfo               *session.VehicleInfo       `json:"vehicleInfo,omitempty"`
	EmergencyContactsNotified []session.EmergencyContact `json:"emergencyContactsNotified"`
}

// LiveUpdate is one escalating assessment received after the dispatch began.
type LiveUpdate struct {
	Timestamp time.Time     `json:"timestamp"`
	Location  *geo.Location `json:"location,omitempty"`
	Score     float64       `json:"score"`
	Level     threat.Level  `json:"level"`
	Action    threat.Action `json:"action"`
}

// Dispatch is the emergency-response record for a session. A session has at
// most one, created by its first silent dispatch or emergency escalation.
type Dispatch struct {
	ID                        string          `json:"id"`
	SessionID                 string          `json:"sessionId"`
	TriggeredAt               time.Time       `json:"triggeredAt"`
	ThreatScore               float64         `json:"threatScore"`
	LastKnownLocation         *geo.Location   `json:"lastKnownLocation,omitempty"`
	LiveUpdates               []LiveUpdate    `json:"liveUpdates"`
	EmergencyServicesNotified bool            `json:"emergencyServicesNotified"`
	EmergencyServicesAt       *time.Time      `json:"emergencyServicesNotifiedAt,omitempty"`
	ContactsNotified          []string        `json:"contactsNotified"`
	EvidencePacket            *EvidencePacket `json:"evidencePacket"`
	UpdatedAt                 time.Time       `json:"updatedAt"`
}

// HasNotified reports whether contactID was already notified for d.
func (d *Dispatch) HasNotified(contactID string) bool {
	for _, id := range d.ContactsNotified {
		if id == contactID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of d.
func (d *Dispatch) Clone() *Dispatch {
	if d == nil {
		return nil
	}
	c := *d
	if d.LastKnownLocation != nil {
		loc := *d.LastKnownLocation
		c.LastKnownLocation = &loc
	}
	if d.EmergencyServicesAt != nil {
		t := *d.EmergencyServicesAt
		c.EmergencyServicesAt = &t
	}
	c.LiveUpdates = append([]LiveUpdate(nil), d.LiveUpdates...)
	c.ContactsNotified = append([]string(nil), d.ContactsNotified...)
	if d.EvidencePacket != nil {
		p := *d.EvidencePacket
		p.GPSHistory = append([]geo.Location(nil), p.GPSHistory...)
		p.DeviationPoints = append([]threat.DeviationPoint(nil), p.DeviationPoints...)
		p.ThreatAssessments = append([]threat.Assessment(nil), p.ThreatAssessments...)
		p.EmergencyContactsNotified = append([]session.EmergencyContact(nil), p.EmergencyContactsNotified...)
		if p.VehicleInfo != nil {
			v := *p.VehicleInfo
			p.VehicleInfo = &v
		}
		c.EvidencePacket = &p
	}
	return &c
}

// Result describes what one Escalate call did.
type Result struct {
	DispatchID string          `json:"dispatchId"`
	Actions    []string        `json:"actions"`
	Packet     *EvidencePacket `json:"evidencePacket"`
	Dispatch   *Dispatch       `json:"-"`
}
