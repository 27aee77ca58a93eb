package session

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Store.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*RideSession
	locks    *keyedMutex
}

var _ Store = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory session store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*RideSession),
		locks:    newKeyedMutex(),
	}
}

// Lock holds the session for every caller sharing this repository.
func (r *InMemoryRepository) Lock(_ context.Context, id string) (func(), error) {
	return r.locks.Lock(id), nil
}

// Get retrieves a session by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*RideSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Put creates or replaces a session.
func (r *InMemoryRepository) Put(_ context.Context, s *RideSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s.Clone()
	return nil
}

// Delete removes a session.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Find returns the IDs of sessions matching f, sorted.
func (r *InMemoryRepository) Find(_ context.Context, f Filter) ([]string, error) {
	r.mu.RLock()
	var ids []string
	for id, s := range r.sessions {
		if f.matches(s) {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}
