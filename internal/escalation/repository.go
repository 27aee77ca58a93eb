package escalation

import "context"

// DispatchRepository persists dispatches.
type DispatchRepository interface {
	Get(ctx context.Context, id string) (*Dispatch, error)

	// Put creates or replaces a dispatch. It returns ErrDispatchExists when
	// d.SessionID already belongs to another dispatch.
	Put(ctx context.Context, d *Dispatch) error
}
