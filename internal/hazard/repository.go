package hazard

import "context"

// Repository provides read access to the zone catalogue.
type Repository interface {
	// List returns all zones.
	List(ctx context.Context) ([]Zone, error)

	// Get retrieves a zone by ID.
	Get(ctx context.Context, id string) (*Zone, error)
}
