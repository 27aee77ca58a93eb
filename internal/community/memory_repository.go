package community

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	reports map[string]Report
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory report repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{reports: make(map[string]Report)}
}

// List returns reports ordered by timestamp, oldest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]Report, error) {
	r.mu.RLock()
	out := make([]Report, 0, len(r.reports))
	for _, rep := range r.reports {
		if !opts.Since.IsZero() && rep.Timestamp.Before(opts.Since) {
			continue
		}
		out = append(out, rep)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out, nil
}

// Get retrieves a report by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &rep, nil
}

// Create stores a new report.
func (r *InMemoryRepository) Create(_ context.Context, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[report.ID] = *report
	return nil
}
