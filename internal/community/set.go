package community

import (
	"time"

	"github.com/saferide/saferide/internal/geo"
)

// Set is an immutable snapshot of reports with a spatial index for
// proximity queries. It is safe for concurrent use.
type Set struct {
	reports    []Report
	index      *geo.Index[int]
	byReporter map[string][]int
}

// NewSet builds a snapshot over reports. The slice is copied.
func NewSet(reports []Report) *Set {
	s := &Set{
		reports:    make([]Report, len(reports)),
		index:      geo.NewIndex[int](),
		byReporter: make(map[string][]int),
	}
	copy(s.reports, reports)
	for i, r := range s.reports {
		s.index.Insert(r.Location, i)
		s.byReporter[r.ReporterID] = append(s.byReporter[r.ReporterID], i)
	}
	return s
}

// Len returns the number of reports in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.reports)
}

// Reports returns a copy of the reports.
func (s *Set) Reports() []Report {
	if s == nil {
		return nil
	}
	out := make([]Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Nearby returns the reports within radius meters of loc.
func (s *Set) Nearby(loc geo.Location, radius float64) []Report {
	if s == nil {
		return nil
	}
	idx := s.index.Within(loc, radius)
	out := make([]Report, len(idx))
	for i, j := range idx {
		out[i] = s.reports[j]
	}
	return out
}

// Validate is Validate(report, s.Reports(), now) answered from the index.
func (s *Set) Validate(report Report, now time.Time) Validation {
	if s == nil {
		return Validate(report, nil, now)
	}

	var sameReporter, nearbyRecent, consensus int
	for _, j := range s.byReporter[report.ReporterID] {
		other := s.reports[j]
		if other.ID != report.ID && within(other.Timestamp, now, reporterWindow) {
			sameReporter++
		}
	}
	for _, j := range s.index.Within(report.Location, ProximityRadius) {
		other := s.reports[j]
		if other.ID == report.ID {
			continue
		}
		if within(other.Timestamp, now, areaWindow) {
			nearbyRecent++
		}
		if other.IsVerified && other.Type == report.Type {
			consensus++
		}
	}
	return verdict(report, sameReporter, nearbyRecent, consensus, now)
}

// Weighted validates every report in the set and returns the valid ones with
// their weights, in set order.
func (s *Set) Weighted(now time.Time) []Weighted {
	if s == nil {
		return nil
	}
	var out []Weighted
	for _, r := range s.reports {
		if v := s.Validate(r, now); v.Valid {
			out = append(out, Weighted{Report: r, Weight: v.Weight})
		}
	}
	return out
}
