package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresRepository stores dispatches as JSONB documents.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ DispatchRepository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL dispatch repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a dispatch by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Dispatch, error) {
	query := `SELECT document FROM dispatches WHERE id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDispatchNotFound
		}
		return nil, err
	}

	var d Dispatch
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decode dispatch %s: %w", id, err)
	}
	return &d, nil
}

// Put creates or replaces a dispatch.
func (r *PostgresRepository) Put(ctx context.Context, d *Dispatch) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dispatch %s: %w", d.ID, err)
	}

	query := `
		INSERT INTO dispatches (id, session_id, emergency_services_notified, document, triggered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			emergency_services_notified = EXCLUDED.emergency_services_notified,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		d.ID,
		d.SessionID,
		d.EmergencyServicesNotified,
		doc,
		d.TriggeredAt,
		d.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDispatchExists
	}
	return err
}
