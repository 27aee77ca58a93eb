package community

import (
	"math"
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// Validate applies the anti-manipulation rules to report against the other
// known reports. Entries of existing sharing report's ID are ignored, so a
// report may be validated against a collection that contains it.
//
// Rules run in order and the first failure wins: low reporter trust, more
// than five reports from the same reporter in 24h, more than ten reports
// within 500 m in the last hour.
func Validate(report Report, existing []Report, now time.Time) Validation {
	var sameReporter, nearbyRecent, consensus int
	for _, other := range existing {
		if other.ID == report.ID {
			continue
		}
		if other.ReporterID == report.ReporterID && within(other.Timestamp, now, reporterWindow) {
			sameReporter++
		}
		near := geo.Distance(report.Location, other.Location) <= ProximityRadius
		if near && within(other.Timestamp, now, areaWindow) {
			nearbyRecent++
		}
		if near && other.IsVerified && other.Type == report.Type {
			consensus++
		}
	}
	return verdict(report, sameReporter, nearbyRecent, consensus, now)
}

func verdict(report Report, sameReporter, nearbyRecent, consensus int, now time.Time) Validation {
	switch {
	case report.ReporterTrustScore < MinTrustScore:
		return Validation{Reason: ReasonLowTrust}
	case sameReporter > maxReporterReports:
		return Validation{Reason: ReasonReportingFrequency}
	case nearbyRecent > maxAreaReports:
		return Validation{Reason: ReasonCoordinatedReporting}
	}

	weight := MaxWeight * Decay(report.Timestamp, now) * report.ReporterTrustScore
	if consensus < MinConsensus {
		weight *= unconfirmedFactor
	}
	return Validation{Valid: true, Weight: weight}
}

// Decay is the linear age discount over DecayDays, floored at 0.
func Decay(reported, now time.Time) float64 {
	ageDays := now.Sub(reported).Hours() / 24
	return math.Max(0, 1-ageDays/DecayDays)
}

func within(ts, now time.Time, window time.Duration) bool {
	return !ts.Before(now.Add(-window))
}
