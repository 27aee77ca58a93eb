package routing

import (
	"math"
	"time"

	"github.com/saferide/saferide/internal/community"
	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/hazard"
)

const (
	// NeutralSafetyScore is used when a route cannot be scored meaningfully.
	NeutralSafetyScore = 0.5

	zoneRiskShare = 0.9
)

// SafetyScore rates waypoints in [0,1], higher is safer. Average zone
// exposure contributes 90% of the risk. Each valid community report within
// 500 m of a waypoint adds its weight for unsafe areas and subtracts half of
// it for any other type. That sum over every waypoint and report pair is
// divided by the waypoint count, then capped to community.MaxWeight.
func SafetyScore(waypoints []geo.Location, zones []hazard.Zone, reports *community.Set, now time.Time) float64 {
	if len(waypoints) == 0 {
		return NeutralSafetyScore
	}

	risk := hazard.AverageExposure(waypoints, zones)*zoneRiskShare + CommunityRisk(waypoints, reports, now)
	return math.Max(0, math.Min(1, 1-risk))
}

// CommunityRisk is the report contribution to route risk, in
// [0, community.MaxWeight].
func CommunityRisk(waypoints []geo.Location, reports *community.Set, now time.Time) float64 {
	if len(waypoints) == 0 || reports.Len() == 0 {
		return 0
	}

	valid := geo.NewIndex[community.Weighted]()
	for _, w := range reports.Weighted(now) {
		valid.Insert(w.Report.Location, w)
	}
	if valid.Len() == 0 {
		return 0
	}

	var sum float64
	for _, wp := range waypoints {
		for _, w := range valid.Within(wp, community.ProximityRadius) {
			if w.Report.Type == community.TypeUnsafeArea {
				sum += w.Weight
			} else {
				sum -= w.Weight / 2
			}
		}
	}

	return math.Max(0, math.Min(community.MaxWeight, sum/float64(len(waypoints))))
}
