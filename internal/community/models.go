// Package community validates crowd-submitted safety reports and derives the
// weight each one carries in route scoring.
package community

import (
	"errors"
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// Repository errors.
var (
	ErrReportNotFound = errors.New("community report not found")
)

// Type classifies a community report.
type Type string

const (
	TypeUnsafeArea         Type = "unsafe_area"
	TypeSafeArea           Type = "safe_area"
	TypeIncident           Type = "incident"
	TypeSuspiciousActivity Type = "suspicious_activity"
)

// Valid reports whether t is a known report type.
func (t Type) Valid() bool {
	switch t {
	case TypeUnsafeArea, TypeSafeArea, TypeIncident, TypeSuspiciousActivity:
		return true
	}
	return false
}

// Validation settings.
const (
	MaxWeight     = 0.1
	MinTrustScore = 0.3
	MinConsensus  = 3
	DecayDays     = 30

	// unconfirmedFactor discounts reports without consensus.
	unconfirmedFactor = 0.3

	// ProximityRadius bounds both spike detection and consensus, in meters.
	ProximityRadius = 500.0

	maxReporterReports = 5
	reporterWindow     = 24 * time.Hour
	maxAreaReports     = 10
	areaWindow         = time.Hour
)

// Rejection reasons.
const (
	ReasonLowTrust             = "reporter trust score too low"
	ReasonReportingFrequency   = "suspicious reporting frequency"
	ReasonCoordinatedReporting = "possible coordinated manipulation"
)

// Report is a crowd-submitted safety observation. Reports are never mutated
// by validation.
type Report struct {
	ID                 string       `json:"id"`
	ReporterID         string       `json:"reporterId"`
	ReporterTrustScore float64      `json:"reporterTrustScore"`
	Location           geo.Location `json:"location"`
	Type               Type         `json:"type"`
	Description        string       `json:"description"`
	Timestamp          time.Time    `json:"timestamp"`
	VerificationCount  int          `json:"verificationCount"`
	IsVerified         bool         `json:"isVerified"`
}

// Validation is the derived verdict for a report.
type Validation struct {
	Valid  bool    `json:"valid"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason,omitempty"`
}

// Weighted pairs a valid report with its weight.
type Weighted struct {
	Report Report
	Weight float64
}
