package threat

import (
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
)

// unknownPositionDeviation is the route deviation assumed when there is no
// current position.
const unknownPositionDeviation = 0.5

// Input is everything one evaluation needs.
type Input struct {
	// Current is nil when the device has no usable position.
	Current         *geo.Location
	Route           []geo.Location
	LocationHistory []geo.Location
	Deviations      []DeviationPoint
	Zones           []hazard.Zone
	LocationEnabled bool
	LastUpdate      time.Time
	// Now stamps the assessment.
	Now time.Time
}

// Assess computes the four factors, combines them into a weighted score and
// classifies it.
func Assess(in Input) Assessment {
	factors := Factors{
		SuspiciousStops:  SuspiciousStopsFactor(in.LocationHistory),
		LocationDisabled: LocationDisabledFactor(in.LocationEnabled, in.LastUpdate, in.Now),
	}

	if in.Current == nil {
		factors.RouteDeviation = unknownPositionDeviation
	} else {
		distance := geo.DistanceFromRoute(*in.Current, in.Route)
		factors.RouteDeviation = RouteDeviationFactor(distance, in.Deviations, in.Now)
		factors.HighRiskZone = HighRiskZoneFactor(*in.Current, in.Zones)
	}

	score := clamp01(factors.Score())
	level, action := Classify(score)
	return Assessment{
		Timestamp: in.Now,
		Score:     score,
		Factors:   factors,
		Level:     level,
		Action:    action,
	}
}

// Classify maps a score to its level and action. Thresholds are inclusive
// except the low band, which starts above 0.2.
func Classify(score float64) (Level, Action) {
	switch {
	case score >= EmergencyEscalationThreshold:
		return LevelCritical, ActionEmergencyEscalation
	case score >= SilentDispatchThreshold:
		return LevelHigh, ActionSilentDispatch
	case score >= SoftAlertThreshold:
		return LevelMedium, ActionLog
	case score > lowThreshold:
		return LevelLow, ActionNone
	default:
		return LevelSafe, ActionNone
	}
}
