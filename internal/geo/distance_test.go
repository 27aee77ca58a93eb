package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saferide/saferide/internal/geo"
)

// metersPerDegreeLat is the length of one degree of latitude on the model sphere.
const metersPerDegreeLat = geo.EarthRadiusMeters * math.Pi / 180

func north(from geo.Location, meters float64) geo.Location {
	return geo.Location{Lat: from.Lat + meters/metersPerDegreeLat, Lng: from.Lng}
}

func TestDistance_Identity(t *testing.T) {
	a := geo.Location{Lat: 52.370216, Lng: 4.895168}
	assert.Equal(t, 0.0, geo.Distance(a, a))
}

func TestDistance_Symmetric(t *testing.T) {
	a := geo.Location{Lat: 52.370216, Lng: 4.895168}
	b := geo.Location{Lat: 52.308056, Lng: 4.763889}

	assert.Equal(t, geo.Distance(a, b), geo.Distance(b, a))
}

func TestDistance_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		a, b     geo.Location
		expected float64
		delta    float64
	}{
		{
			name:     "one degree of latitude",
			a:        geo.Location{Lat: 0, Lng: 0},
			b:        geo.Location{Lat: 1, Lng: 0},
			expected: metersPerDegreeLat,
			delta:    0.01,
		},
		{
			name:     "amsterdam to schiphol",
			a:        geo.Location{Lat: 52.370216, Lng: 4.895168},
			b:        geo.Location{Lat: 52.308056, Lng: 4.763889},
			expected: 11_300,
			delta:    200,
		},
		{
			name:     "antipodal points stay finite",
			a:        geo.Location{Lat: 0, Lng: 0},
			b:        geo.Location{Lat: 0, Lng: 180},
			expected: math.Pi * geo.EarthRadiusMeters,
			delta:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, geo.Distance(tt.a, tt.b), tt.delta)
		})
	}
}

func TestDistance_TriangleInequality(t *testing.T) {
	a := geo.Location{Lat: 52.37, Lng: 4.89}
	b := geo.Location{Lat: 52.09, Lng: 5.11}
	c := geo.Location{Lat: 51.92, Lng: 4.48}

	assert.LessOrEqual(t, geo.Distance(a, c), geo.Distance(a, b)+geo.Distance(b, c)+1e-6)
}

func TestDistanceToSegment(t *testing.T) {
	a := geo.Location{Lat: 52.0, Lng: 4.0}
	b := geo.Location{Lat: 52.0, Lng: 4.1}

	t.Run("perpendicular to segment middle", func(t *testing.T) {
		mid := geo.Location{Lat: 52.0, Lng: 4.05}
		p := north(mid, 250)
		assert.InDelta(t, 250, geo.DistanceToSegment(p, a, b), 1)
	})

	t.Run("beyond endpoint clamps to endpoint", func(t *testing.T) {
		p := geo.Location{Lat: 52.0, Lng: 4.2}
		assert.InDelta(t, geo.Distance(p, b), geo.DistanceToSegment(p, a, b), 1e-6)
	})

	t.Run("zero length segment", func(t *testing.T) {
		p := north(a, 500)
		d := geo.DistanceToSegment(p, a, a)
		assert.False(t, math.IsNaN(d))
		assert.InDelta(t, 500, d, 0.5)
	})
}

func TestDistanceFromRoute(t *testing.T) {
	waypoints := []geo.Location{
		{Lat: 52.0, Lng: 4.0},
		{Lat: 52.0, Lng: 4.05},
		{Lat: 52.0, Lng: 4.05}, // duplicate waypoint
		{Lat: 52.05, Lng: 4.05},
	}

	t.Run("on route", func(t *testing.T) {
		assert.InDelta(t, 0, geo.DistanceFromRoute(geo.Location{Lat: 52.0, Lng: 4.02}, waypoints), 0.5)
	})

	t.Run("never exceeds distance to any waypoint", func(t *testing.T) {
		points := []geo.Location{
			{Lat: 52.01, Lng: 4.01},
			{Lat: 51.99, Lng: 4.2},
			{Lat: 52.1, Lng: 3.9},
			{Lat: 52.03, Lng: 4.06},
		}
		for _, p := range points {
			d := geo.DistanceFromRoute(p, waypoints)
			assert.False(t, math.IsNaN(d) || math.IsInf(d, 0))
			for _, wp := range waypoints {
				assert.LessOrEqual(t, d, geo.Distance(p, wp)+1e-9)
			}
		}
	})

	t.Run("two waypoint route", func(t *testing.T) {
		route := []geo.Location{{Lat: 52.0, Lng: 4.0}, {Lat: 52.1, Lng: 4.0}}
		p := geo.Location{Lat: 52.05, Lng: 4.0}
		assert.InDelta(t, 0, geo.DistanceFromRoute(p, route), 0.5)
	})

	t.Run("empty route", func(t *testing.T) {
		assert.Equal(t, 0.0, geo.DistanceFromRoute(geo.Location{Lat: 1, Lng: 1}, nil))
	})
}
