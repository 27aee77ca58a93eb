package escalation

import (
	"fmt"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/session"
	"github.com/saferide/saferide/internal/threat"
)

// Reason formats the escalation reason recorded in the evidence packet.
func Reason(a threat.Assessment) string {
	return fmt.Sprintf("Threat level: %s, Score: %.2f", a.Level, a.Score)
}

// BuildEvidencePacket snapshots the session histories at now.
func BuildEvidencePacket(sess *session.RideSession, reason string, now time.Time) *EvidencePacket {
	p := &EvidencePacket{
		SessionID:                 sess.ID,
		Timestamp:                 now,
		GPSHistory:                []geo.Location{},
		DeviationPoints:           append([]threat.DeviationPoint{}, sess.DeviationHistory...),
		ThreatAssessments:         []threat.Assessment{},
		EscalationReason:          reason,
		EmergencyContactsNotified: []session.EmergencyContact{},
	}
	if sess.LocationHistory != nil {
		p.GPSHistory = sess.LocationHistory.Items()
	}
	if sess.ThreatHistory != nil {
		p.ThreatAssessments = sess.ThreatHistory.Items()
	}
	if sess.VehicleInfo != nil {
		v := *sess.VehicleInfo
		p.VehicleInfo = &v
	}
	return p
}
