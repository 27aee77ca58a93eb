package session

import (
	"context"
	"time"
)

// Filter selects sessions for background sweeps.
type Filter struct {
	Statuses []Status
	// LastUpdateBefore, when non-zero, keeps sessions not updated since.
	LastUpdateBefore time.Time
}

func (f Filter) matches(s *RideSession) bool {
	if !f.LastUpdateBefore.IsZero() && !s.LastUpdateAt.Before(f.LastUpdateBefore) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if s.Status == st {
			return true
		}
	}
	return false
}

// Store persists ride sessions. Implementations return copies; callers
// mutate a copy and Put it back while holding the session's lock.
type Store interface {
	// Lock holds the session exclusively, across every process sharing the
	// store, until the returned function is called. Lock does not require
	// the session to exist.
	Lock(ctx context.Context, id string) (func(), error)

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*RideSession, error)

	// Put creates or replaces a session.
	Put(ctx context.Context, s *RideSession) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Find returns the IDs of sessions matching f.
	Find(ctx context.Context, f Filter) ([]string, error)
}
