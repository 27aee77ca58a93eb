package monitor

import (
	"context"
	"math"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/threat"
)

// TestSupport drives sessions with synthetic threat levels for drills and
// end-to-end testing. It is kept off Service so production code paths
// cannot bypass scoring by accident.
type TestSupport struct {
	svc *Service
}

// NewTestSupport wraps svc.
func NewTestSupport(svc *Service) *TestSupport {
	return &TestSupport{svc: svc}
}

// ForceThreatLevel applies an assessment with the given score, classified
// with the regular thresholds, and runs escalation as for a live update.
func (t *TestSupport) ForceThreatLevel(ctx context.Context, id string, loc *geo.Location, score float64) (*UpdateResult, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, ErrInvalidScore
	}
	return t.svc.force(ctx, id, loc, func(now time.Time) threat.Assessment {
		return threat.Forced(score, now)
	})
}
