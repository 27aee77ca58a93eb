package escalation

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of DispatchRepository.
type InMemoryRepository struct {
	mu         sync.RWMutex
	dispatches map[string]*Dispatch
	bySession  map[string]string
}

var _ DispatchRepository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory dispatch repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		dispatches: make(map[string]*Dispatch),
		bySession:  make(map[string]string),
	}
}

// Get retrieves a dispatch by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Dispatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dispatches[id]
	if !ok {
		return nil, ErrDispatchNotFound
	}
	return d.Clone(), nil
}

// Put creates or replaces a dispatch.
func (r *InMemoryRepository) Put(_ context.Context, d *Dispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.bySession[d.SessionID]; ok && id != d.ID {
		return ErrDispatchExists
	}
	r.dispatches[d.ID] = d.Clone()
	r.bySession[d.SessionID] = d.ID
	return nil
}
