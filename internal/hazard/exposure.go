package hazard

import "github.com/saferide/saferide/internal/geo"

// Exposure returns the worst zone risk at p. Zones do not accumulate.
func Exposure(p geo.Location, zones []Zone) float64 {
	var worst float64
	for _, z := range zones {
		if r := z.Risk(p); r > worst {
			worst = r
		}
	}
	return worst
}

// AverageExposure is the mean Exposure over all waypoints, or 0 for none.
func AverageExposure(waypoints []geo.Location, zones []Zone) float64 {
	if len(waypoints) == 0 {
		return 0
	}
	var total float64
	for _, wp := range waypoints {
		total += Exposure(wp, zones)
	}
	return total / float64(len(waypoints))
}

// Intersecting returns the zones that contain at least one waypoint, in
// catalogue order.
func Intersecting(waypoints []geo.Location, zones []Zone) []Zone {
	var hit []Zone
	for _, z := range zones {
		for _, wp := range waypoints {
			if z.Contains(wp) {
				hit = append(hit, z)
				break
			}
		}
	}
	return hit
}
