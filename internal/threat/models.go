// Package threat scores a ride against its confirmed route and classifies the
// result into a threat level and the action it warrants. Everything here is
// pure; callers own session state and persistence.
package threat

import (
	"encoding/json"
	"math"
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// Monitoring constants.
const (
	SafeCorridorRadius     = 100.0 // meters
	SuspiciousStopDuration = 60 * time.Second
	LocationUpdateInterval = 10 * time.Second
)

// Score thresholds.
const (
	SoftAlertThreshold           = 0.4
	SilentDispatchThreshold      = 0.7
	EmergencyEscalationThreshold = 0.9
	lowThreshold                 = 0.2
)

// Factor weights. They sum to 1.
const (
	RouteDeviationWeight   = 0.4
	SuspiciousStopsWeight  = 0.3
	HighRiskZoneWeight     = 0.2
	LocationDisabledWeight = 0.1
)

// Level is a discrete threat level.
type Level string

const (
	LevelSafe     Level = "safe"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Action is the response a threat level warrants.
type Action string

const (
	ActionNone                Action = "none"
	ActionLog                 Action = "log"
	ActionSilentDispatch      Action = "silent_dispatch"
	ActionEmergencyEscalation Action = "emergency_escalation"
)

// Escalates reports whether the action starts or continues a dispatch.
func (a Action) Escalates() bool {
	switch a {
	case ActionSilentDispatch, ActionEmergencyEscalation:
		return true
	case ActionNone, ActionLog:
		return false
	}
	return false
}

// IsEmergency reports whether emergency services must be alerted.
func (a Action) IsEmergency() bool {
	return a == ActionEmergencyEscalation
}

// Factors are the four sub-scores, each in [0,1].
type Factors struct {
	RouteDeviation   float64 `json:"routeDeviation"`
	SuspiciousStops  float64 `json:"suspiciousStops"`
	HighRiskZone     float64 `json:"highRiskZone"`
	LocationDisabled float64 `json:"locationDisabled"`
}

// scorePrecision is the resolution scores are rounded to, so that sums
// landing on a threshold in decimal also reach it in binary.
const scorePrecision = 1e9

// Score returns the weighted sum of the factors.
func (f Factors) Score() float64 {
	s := f.RouteDeviation*RouteDeviationWeight +
		f.SuspiciousStops*SuspiciousStopsWeight +
		f.HighRiskZone*HighRiskZoneWeight +
		f.LocationDisabled*LocationDisabledWeight
	return math.Round(s*scorePrecision) / scorePrecision
}

// Assessment is one evaluation of a ride. Assessments are never edited after
// creation.
type Assessment struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Factors   Factors   `json:"factors"`
	Level     Level     `json:"level"`
	Action    Action    `json:"action"`
}

// DeviationPoint is an interval spent outside the safe corridor. Timestamp is
// the latest observation in the interval. Closed is set once a sample inside
// the corridor follows it; a closed interval is never extended.
type DeviationPoint struct {
	Location          geo.Location  `json:"location"`
	DistanceFromRoute float64       `json:"distanceFromRoute"`
	Duration          time.Duration `json:"duration"`
	Timestamp         time.Time     `json:"timestamp"`
	Closed            bool          `json:"closed,omitempty"`
}

type deviationPointJSON struct {
	Location          geo.Location `json:"location"`
	DistanceFromRoute float64      `json:"distanceFromRoute"`
	DurationMS        int64        `json:"duration"`
	Timestamp         time.Time    `json:"timestamp"`
	Closed            bool         `json:"closed,omitempty"`
}

// MarshalJSON encodes Duration as milliseconds.
func (p DeviationPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(deviationPointJSON{
		Location:          p.Location,
		DistanceFromRoute: p.DistanceFromRoute,
		DurationMS:        p.Duration.Milliseconds(),
		Timestamp:         p.Timestamp,
		Closed:            p.Closed,
	})
}

// UnmarshalJSON decodes a millisecond Duration.
func (p *DeviationPoint) UnmarshalJSON(data []byte) error {
	var v deviationPointJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = DeviationPoint{
		Location:          v.Location,
		DistanceFromRoute: v.DistanceFromRoute,
		Duration:          time.Duration(v.DurationMS) * time.Millisecond,
		Timestamp:         v.Timestamp,
		Closed:            v.Closed,
	}
	return nil
}
