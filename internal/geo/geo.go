// Package geo provides the location model and great-circle geometry used for
// route-deviation and proximity checks.
package geo

import (
	"encoding/json"
	"time"
)

// Source identifies how a location sample was obtained.
type Source string

const (
	SourceGPS       Source = "gps"
	SourceNetwork   Source = "network"
	SourceWiFi      Source = "wifi"
	SourceCell      Source = "cell"
	SourceLastKnown Source = "last_known"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceGPS, SourceNetwork, SourceWiFi, SourceCell, SourceLastKnown:
		return true
	}
	return false
}

// Location is an immutable geolocation sample.
// On the wire the timestamp is encoded as Unix milliseconds.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"-"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Source    Source    `json:"source"`
}

type locationAlias Location

type locationJSON struct {
	locationAlias
	TimestampMS int64 `json:"timestamp"`
}

// MarshalJSON implements json.Marshaler.
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{
		locationAlias: locationAlias(l),
		TimestampMS:   l.Timestamp.UnixMilli(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Location) UnmarshalJSON(data []byte) error {
	var v locationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Location(v.locationAlias)
	l.Timestamp = time.UnixMilli(v.TimestampMS).UTC()
	return nil
}

// At returns a copy of l stamped with t and the given source.
func (l Location) At(t time.Time, source Source) Location {
	l.Timestamp = t
	l.Source = source
	return l
}

// ValidCoordinates reports whether the latitude and longitude are within range.
func (l Location) ValidCoordinates() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
