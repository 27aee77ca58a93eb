package routing

import (
	"context"
	"time"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/pkg/polyline"
)

const (
	// StraightLineName identifies the fallback provider.
	StraightLineName = "straight_line"

	// fallbackSpacing keeps fallback routes dense enough for corridor checks.
	fallbackSpacing = 50.0 // meters
	// fallbackSpeed estimates urban driving speed for fallback durations.
	fallbackSpeed = 30.0 / 3.6 // m/s
)

// StraightLine is the provider of last resort: a single direct path from
// origin to destination sampled every 50 m.
type StraightLine struct{}

// Name returns the provider name.
func (StraightLine) Name() string {
	return StraightLineName
}

// GetDirections returns the direct path. It never fails for valid input.
func (StraightLine) GetDirections(_ context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if !req.Origin.ValidCoordinates() || !req.Destination.ValidCoordinates() {
		return nil, &Error{
			Provider: StraightLineName,
			Code:     "INVALID_COORDINATES",
			Message:  "invalid coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	return &DirectionsResponse{
		Paths:     []Path{straightPath(req.Origin, req.Destination)},
		Provider:  StraightLineName,
		FetchedAt: time.Now(),
	}, nil
}

func straightPath(origin, destination geo.Location) Path {
	sampled := polyline.Sample([]polyline.Coordinate{
		{Lat: origin.Lat, Lng: origin.Lng},
		{Lat: destination.Lat, Lng: destination.Lng},
	}, fallbackSpacing)

	waypoints := FromCoordinates(sampled)
	if len(waypoints) < 2 {
		waypoints = []geo.Location{origin, destination}
	}

	distance := geo.Distance(origin, destination)
	return Path{
		Waypoints:       waypoints,
		DistanceMeters:  distance,
		DurationSeconds: distance / fallbackSpeed,
		Summary:         "Direct route",
	}
}

// FromCoordinates converts polyline coordinates to waypoints.
func FromCoordinates(coords []polyline.Coordinate) []geo.Location {
	out := make([]geo.Location, len(coords))
	for i, c := range coords {
		out[i] = geo.Location{Lat: c.Lat, Lng: c.Lng}
	}
	return out
}
