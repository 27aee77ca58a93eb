package hazard

import (
	"context"
	"sync"
)

// InMemoryRepository serves a fixed zone catalogue loaded at startup.
type InMemoryRepository struct {
	mu    sync.RWMutex
	zones []Zone
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a repository seeded with zones.
func NewInMemoryRepository(zones []Zone) *InMemoryRepository {
	cpy := make([]Zone, len(zones))
	copy(cpy, zones)
	return &InMemoryRepository{zones: cpy}
}

// List returns a copy of all zones.
func (r *InMemoryRepository) List(_ context.Context) ([]Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Zone, len(r.zones))
	copy(out, r.zones)
	return out, nil
}

// Get retrieves a zone by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, z := range r.zones {
		if z.ID == id {
			cpy := z
			return &cpy, nil
		}
	}
	return nil, ErrZoneNotFound
}

// Replace swaps the catalogue for zones.
func (r *InMemoryRepository) Replace(zones []Zone) {
	cpy := make([]Zone, len(zones))
	copy(cpy, zones)

	r.mu.Lock()
	r.zones = cpy
	r.mu.Unlock()
}
