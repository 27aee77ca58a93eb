package threat_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/threat"
)

func TestRecordDeviation(t *testing.T) {
	cfg := threat.DefaultDeviationConfig()
	at := func(offset time.Duration) geo.Location {
		return east(start, 400).At(now.Add(offset), geo.SourceGPS)
	}

	var points []threat.DeviationPoint
	points = threat.RecordDeviation(points, at(0), 400, cfg)
	require.Len(t, points, 1)
	assert.Equal(t, time.Duration(0), points[0].Duration)

	t.Run("consecutive samples extend the same interval", func(t *testing.T) {
		p := threat.RecordDeviation(points, at(10*time.Second), 420, cfg)
		p = threat.RecordDeviation(p, at(20*time.Second), 450, cfg)
		require.Len(t, p, 1)
		assert.Equal(t, 20*time.Second, p[0].Duration)
		assert.Equal(t, 450.0, p[0].DistanceFromRoute)
		assert.Equal(t, now.Add(20*time.Second), p[0].Timestamp)
	})

	t.Run("input is not modified", func(t *testing.T) {
		_ = threat.RecordDeviation(points, at(10*time.Second), 420, cfg)
		assert.Equal(t, time.Duration(0), points[0].Duration)
	})

	t.Run("long gap opens a new interval", func(t *testing.T) {
		p := threat.RecordDeviation(points, at(45*time.Second), 300, cfg)
		require.Len(t, p, 2)
		assert.Equal(t, 300.0, p[1].DistanceFromRoute)
	})

	t.Run("inside corridor closes the interval", func(t *testing.T) {
		p := threat.RecordDeviation(points, at(10*time.Second), 50, cfg)
		require.Len(t, p, 1)
		assert.True(t, p[0].Closed)
		assert.False(t, points[0].Closed)
		assert.Equal(t, time.Duration(0), p[0].Duration)

		p = threat.RecordDeviation(points, at(11*time.Minute), 50, cfg)
		assert.Empty(t, p)
	})

	t.Run("return to route splits intervals", func(t *testing.T) {
		p := threat.RecordDeviation(points, at(10*time.Second), 20, cfg)
		p = threat.RecordDeviation(p, at(20*time.Second), 400, cfg)
		require.Len(t, p, 2)
		assert.Equal(t, time.Duration(0), p[0].Duration)
		assert.Equal(t, time.Duration(0), p[1].Duration)
		assert.False(t, p[1].Closed)
		assert.Equal(t, now.Add(20*time.Second), p[1].Timestamp)
	})

	t.Run("out of order sample ignored", func(t *testing.T) {
		p := threat.RecordDeviation(points, at(-5*time.Second), 500, cfg)
		assert.Equal(t, points, p)
	})
}

func TestDeviationPoint_JSONMilliseconds(t *testing.T) {
	p := threat.DeviationPoint{
		Location:          start.At(now, geo.SourceGPS),
		DistanceFromRoute: 250,
		Duration:          1500 * time.Millisecond,
		Timestamp:         now,
		Closed:            true,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration":1500`)

	var decoded threat.DeviationPoint
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, p.Duration, decoded.Duration)
	assert.True(t, decoded.Closed)
	assert.True(t, p.Timestamp.Equal(decoded.Timestamp))
}
