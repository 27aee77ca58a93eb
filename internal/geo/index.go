package geo

import (
	"sort"

	"github.com/golang/geo/s2"
)

const (
	// indexLevel is the S2 cell level used for bucketing. Level 12 cells are
	// at least ~1.4 km wide, so a cell plus its neighbours always covers a
	// circle of MaxIndexRadius around any point inside the cell.
	indexLevel = 12

	// MaxIndexRadius is the largest radius, in meters, answered from the
	// cell neighbourhood. Larger queries fall back to a full scan.
	MaxIndexRadius = 1000.0
)

type indexEntry[T any] struct {
	seq  int
	loc  Location
	item T
}

// Index buckets items by the S2 cell of their location for fast proximity
// queries. It is not safe for concurrent mutation; build it once and share it
// read-only.
type Index[T any] struct {
	cells map[s2.CellID][]indexEntry[T]
	size  int
}

// NewIndex creates an empty index.
func NewIndex[T any]() *Index[T] {
	return &Index[T]{cells: make(map[s2.CellID][]indexEntry[T])}
}

// Insert adds item at loc.
func (ix *Index[T]) Insert(loc Location, item T) {
	cell := cellOf(loc)
	ix.cells[cell] = append(ix.cells[cell], indexEntry[T]{seq: ix.size, loc: loc, item: item})
	ix.size++
}

// Len returns the number of indexed items.
func (ix *Index[T]) Len() int {
	return ix.size
}

// Within returns the items whose location is within radius meters of center,
// in insertion order.
func (ix *Index[T]) Within(center Location, radius float64) []T {
	if ix.size == 0 {
		return nil
	}

	var matches []indexEntry[T]
	collect := func(entries []indexEntry[T]) {
		for _, e := range entries {
			if Distance(center, e.loc) <= radius {
				matches = append(matches, e)
			}
		}
	}

	if radius > MaxIndexRadius {
		for _, entries := range ix.cells {
			collect(entries)
		}
	} else {
		origin := cellOf(center)
		seen := map[s2.CellID]struct{}{origin: {}}
		collect(ix.cells[origin])
		for _, neighbor := range origin.AllNeighbors(indexLevel) {
			if _, ok := seen[neighbor]; ok {
				continue
			}
			seen[neighbor] = struct{}{}
			collect(ix.cells[neighbor])
		}
	}

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].seq < matches[b].seq
	})

	items := make([]T, len(matches))
	for i, m := range matches {
		items[i] = m.item
	}
	return items
}

func cellOf(loc Location) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(loc.Lat, loc.Lng)).Parent(indexLevel)
}
