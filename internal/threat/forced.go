package threat

import "time"

// Panic is the assessment for a manual emergency trigger. It bypasses
// scoring and carries no factor evidence.
func Panic(now time.Time) Assessment {
	return Assessment{
		Timestamp: now,
		Score:     1,
		Level:     LevelCritical,
		Action:    ActionEmergencyEscalation,
	}
}

// Forced builds an assessment for an arbitrary score, classified with the
// regular thresholds. Each factor is back-filled as score times its weight
// for display only. It exists for drills and integration testing.
func Forced(score float64, now time.Time) Assessment {
	score = clamp01(score)
	level, action := Classify(score)
	return Assessment{
		Timestamp: now,
		Score:     score,
		Factors: Factors{
			RouteDeviation:   score * RouteDeviationWeight,
			SuspiciousStops:  score * SuspiciousStopsWeight,
			HighRiskZone:     score * HighRiskZoneWeight,
			LocationDisabled: score * LocationDisabledWeight,
		},
		Level:  level,
		Action: action,
	}
}
