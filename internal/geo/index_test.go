package geo_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/geo"
)

func TestIndex_WithinMatchesBruteForce(t *testing.T) {
	center := geo.Location{Lat: 52.3676, Lng: 4.9041}

	var points []geo.Location
	for i := 0; i < 40; i++ {
		points = append(points, north(center, float64(i*50-1000)))
	}
	// Points that straddle a cell boundary are still found through neighbours.
	points = append(points, geo.Location{Lat: center.Lat, Lng: center.Lng + 0.006})

	ix := geo.NewIndex[int]()
	for i, p := range points {
		ix.Insert(p, i)
	}
	assert.Equal(t, len(points), ix.Len())

	for _, radius := range []float64{100, 500, 1000, 5000} {
		var expected []int
		for i, p := range points {
			if geo.Distance(center, p) <= radius {
				expected = append(expected, i)
			}
		}
		assert.Equal(t, expected, ix.Within(center, radius), "radius %v", radius)
	}
}

func TestIndex_Empty(t *testing.T) {
	ix := geo.NewIndex[string]()
	assert.Empty(t, ix.Within(geo.Location{Lat: 1, Lng: 1}, 500))
}

func TestLocation_JSONMilliseconds(t *testing.T) {
	acc := 12.5
	loc := geo.Location{
		Lat:       52.1,
		Lng:       4.3,
		Timestamp: time.UnixMilli(1_700_000_000_123).UTC(),
		Accuracy:  &acc,
		Source:    geo.SourceGPS,
	}

	data, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":1700000000123`)

	var decoded geo.Location
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, loc.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, geo.SourceGPS, decoded.Source)
	require.NotNil(t, decoded.Accuracy)
	assert.Equal(t, acc, *decoded.Accuracy)
}
