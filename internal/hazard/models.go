// Package hazard holds the static high-risk zone catalogue and the proximity
// scoring applied against it.
package hazard

import (
	"errors"
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// Repository errors.
var (
	ErrZoneNotFound = errors.New("hazard zone not found")
)

// Zone is a circular area with an elevated risk level.
type Zone struct {
	ID           string       `json:"id"`
	Center       geo.Location `json:"center"`
	Radius       float64      `json:"radius"`
	RiskLevel    float64      `json:"riskLevel"`
	Reason       string       `json:"reason"`
	ReportCount  int          `json:"reportCount"`
	LastReported time.Time    `json:"lastReported"`
}

// Contains reports whether p lies within the zone radius.
func (z Zone) Contains(p geo.Location) bool {
	return geo.Distance(p, z.Center) <= z.Radius
}

// Risk returns the zone's contribution at p: the full risk level inside the
// radius, decaying linearly to zero across the band out to twice the radius.
func (z Zone) Risk(p geo.Location) float64 {
	if z.Radius <= 0 {
		return 0
	}
	d := geo.Distance(p, z.Center)
	switch {
	case d <= z.Radius:
		return z.RiskLevel
	case d <= 2*z.Radius:
		return z.RiskLevel * (1 - (d-z.Radius)/z.Radius)
	default:
		return 0
	}
}
