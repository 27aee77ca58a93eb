package threat

import (
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// DeviationConfig tunes deviation tracking.
type DeviationConfig struct {
	// MergeGap is the largest gap between samples that still extends the
	// current deviation interval.
	MergeGap time.Duration

	// Retention drops intervals whose last observation is older than this.
	Retention time.Duration
}

// DefaultDeviationConfig returns the default deviation tracking settings.
func DefaultDeviationConfig() DeviationConfig {
	return DeviationConfig{
		MergeGap:  2 * LocationUpdateInterval,
		Retention: 10 * time.Minute,
	}
}

// RecordDeviation folds the sample loc, distance meters from the route, into
// points and returns the updated history. points is not modified.
//
// Outside the safe corridor a sample within MergeGap of the last open
// interval extends it; otherwise it opens a new interval. A sample inside the
// corridor closes the last interval. Samples older than the last interval are
// ignored. Intervals past Retention are pruned either way.
func RecordDeviation(points []DeviationPoint, loc geo.Location, distance float64, cfg DeviationConfig) []DeviationPoint {
	if cfg.MergeGap <= 0 {
		cfg.MergeGap = DefaultDeviationConfig().MergeGap
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultDeviationConfig().Retention
	}

	out := make([]DeviationPoint, 0, len(points)+1)
	cutoff := loc.Timestamp.Add(-cfg.Retention)
	for _, p := range points {
		if !p.Timestamp.Before(cutoff) {
			out = append(out, p)
		}
	}

	if distance <= SafeCorridorRadius {
		if n := len(out); n > 0 && !loc.Timestamp.Before(out[n-1].Timestamp) {
			out[n-1].Closed = true
		}
		return out
	}

	if n := len(out); n > 0 {
		last := &out[n-1]
		gap := loc.Timestamp.Sub(last.Timestamp)
		if gap < 0 {
			return out
		}
		if gap <= cfg.MergeGap && !last.Closed {
			last.Duration += gap
			last.Location = loc
			last.DistanceFromRoute = distance
			last.Timestamp = loc.Timestamp
			return out
		}
	}

	return append(out, DeviationPoint{
		Location:          loc,
		DistanceFromRoute: distance,
		Timestamp:         loc.Timestamp,
	})
}
