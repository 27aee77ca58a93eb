package threat

import (
	"math"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
)

const (
	deviationDistanceCap = 1000.0 // meters
	deviationWindow      = 5 * time.Minute
	deviationDistanceMix = 0.6
	deviationTimeMix     = 0.4

	stoppedSpeed    = 1.0 // m/s
	stopsToSaturate = 3

	staleWarning  = 30 * time.Second
	staleCritical = 60 * time.Second
)

// RouteDeviationFactor scores how far and how long the rider has been off
// route. Inside the safe corridor it is 0. Outside, distance against a 1 km
// cap carries 0.6 and deviation time recorded in the last five minutes
// against a five minute cap carries 0.4.
func RouteDeviationFactor(distance float64, deviations []DeviationPoint, now time.Time) float64 {
	if distance <= SafeCorridorRadius {
		return 0
	}

	cutoff := now.Add(-deviationWindow)
	var recent time.Duration
	for _, p := range deviations {
		if !p.Timestamp.Before(cutoff) {
			recent += p.Duration
		}
	}

	distanceScore := math.Min(distance/deviationDistanceCap, 1)
	timeScore := math.Min(float64(recent)/float64(deviationWindow), 1)
	return clamp01(distanceScore*deviationDistanceMix + timeScore*deviationTimeMix)
}

// SuspiciousStopsFactor counts stops longer than SuspiciousStopDuration in
// the location history. A stop counts once motion resumes, or at the end of
// the history if the rider is still stopped. Three stops saturate the score.
func SuspiciousStopsFactor(history []geo.Location) float64 {
	var (
		stops   int
		stopped time.Duration
	)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		dt := cur.Timestamp.Sub(prev.Timestamp)
		if dt <= 0 {
			continue
		}

		speed := geo.Distance(prev, cur) / dt.Seconds()
		if speed < stoppedSpeed {
			stopped += dt
			continue
		}
		if stopped > SuspiciousStopDuration {
			stops++
		}
		stopped = 0
	}
	if stopped > SuspiciousStopDuration {
		stops++
	}

	return math.Min(float64(stops)/stopsToSaturate, 1)
}

// HighRiskZoneFactor is the worst zone exposure at p.
func HighRiskZoneFactor(p geo.Location, zones []hazard.Zone) float64 {
	return clamp01(hazard.Exposure(p, zones))
}

// LocationDisabledFactor is 1 when location sharing is off, and otherwise
// grows with the time since the last update: 0.4 past 30 seconds, 0.8 past
// 60. A zero lastUpdate means no baseline yet and scores 0.
func LocationDisabledFactor(enabled bool, lastUpdate, now time.Time) float64 {
	if !enabled {
		return 1
	}
	if lastUpdate.IsZero() {
		return 0
	}

	switch stale := now.Sub(lastUpdate); {
	case stale > staleCritical:
		return 0.8
	case stale > staleWarning:
		return 0.4
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
