package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by all distance calculations.
const EarthRadiusMeters = 6371000

// Distance returns the great-circle distance between a and b in meters
// using the haversine formula.
func Distance(a, b Location) float64 {
	return haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	// Rounding can push h marginally past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceToSegment returns the distance in meters from p to the segment a-b.
// The projection is done on an equirectangular plane centred on p, clamped to
// the segment, and the result is measured back on the sphere with Distance.
// A zero-length segment resolves to the distance to a.
func DistanceToSegment(p, a, b Location) float64 {
	scale := math.Cos(p.Lat * math.Pi / 180)

	ax, ay := a.Lng*scale, a.Lat
	bx, by := b.Lng*scale, b.Lat
	px, py := p.Lng*scale, p.Lat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	projected := Location{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
	return Distance(p, projected)
}

// DistanceFromRoute returns the minimum distance in meters from p to the
// polyline described by waypoints, considering both the waypoints themselves
// and every segment between consecutive waypoints.
// An empty waypoint list has no baseline and yields 0.
func DistanceFromRoute(p Location, waypoints []Location) float64 {
	if len(waypoints) == 0 {
		return 0
	}

	minDist := math.Inf(1)
	for i, wp := range waypoints {
		if d := Distance(p, wp); d < minDist {
			minDist = d
		}
		if i == 0 {
			continue
		}
		if d := DistanceToSegment(p, waypoints[i-1], wp); d < minDist {
			minDist = d
		}
	}
	return minDist
}
