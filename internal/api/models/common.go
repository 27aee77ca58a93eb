// Package models provides request and response models for the SafeRide API.
package models

import (
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Location is a location sample as submitted by a client. Timestamps are
// Unix milliseconds; a missing timestamp means "now".
type Location struct {
	Lat       float64  `json:"lat" validate:"latitude"`
	Lng       float64  `json:"lng" validate:"longitude"`
	Timestamp int64    `json:"timestamp,omitempty" validate:"gte=0"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Source    string   `json:"source,omitempty" validate:"omitempty,oneof=gps network wifi cell last_known"`
}

// ToGeo converts l to a domain location, stamping it with now when the
// client sent no timestamp and defaulting the source to gps.
func (l Location) ToGeo(now time.Time) geo.Location {
	loc := geo.Location{
		Lat:       l.Lat,
		Lng:       l.Lng,
		Timestamp: now,
		Accuracy:  l.Accuracy,
		Source:    geo.SourceGPS,
	}
	if l.Timestamp > 0 {
		loc.Timestamp = time.UnixMilli(l.Timestamp).UTC()
	}
	if l.Source != "" {
		loc.Source = geo.Source(l.Source)
	}
	return loc
}

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || len(data) < 2 {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
