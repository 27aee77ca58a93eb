package community

import (
	"context"
	"time"
)

// ListOptions filters report listings.
type ListOptions struct {
	// Since excludes reports older than this instant when non-zero.
	Since time.Time
	Limit int
}

// Repository defines persistence for community reports.
type Repository interface {
	// List returns reports ordered by timestamp, oldest first.
	List(ctx context.Context, opts ListOptions) ([]Report, error)

	// Get retrieves a report by ID.
	Get(ctx context.Context, id string) (*Report, error)

	// Create stores a new report.
	Create(ctx context.Context, report *Report) error
}
