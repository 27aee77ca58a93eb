package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const unlockTimeout = 5 * time.Second

// PostgresRepository stores each session as a JSONB document alongside the
// columns used for sweeps.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	limits Limits
	// local queues callers in this process so that only one of them holds a
	// pool connection while waiting on the advisory lock.
	local *keyedMutex
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL session store. limits sizes
// the histories of decoded sessions.
func NewPostgresRepository(pool *pgxpool.Pool, limits Limits) *PostgresRepository {
	return &PostgresRepository{pool: pool, limits: limits, local: newKeyedMutex()}
}

// Lock takes a session-level advisory lock keyed on the session ID. The lock
// lives on a dedicated pool connection until the returned function runs, so
// a worker and any number of API replicas serialize on the same session.
func (r *PostgresRepository) Lock(ctx context.Context, id string) (func(), error) {
	release := r.local.Lock(id)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		release()
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, id); err != nil {
		conn.Release()
		release()
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, id); err != nil {
			// Closing the connection drops every lock it holds.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
		release()
	}, nil
}

// Get retrieves a session by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*RideSession, error) {
	query := `SELECT document FROM ride_sessions WHERE id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	s := empty(r.limits)
	if err := json.Unmarshal(doc, s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// Put creates or replaces a session.
func (r *PostgresRepository) Put(ctx context.Context, s *RideSession) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	query := `
		INSERT INTO ride_sessions (id, status, last_update_at, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			last_update_at = EXCLUDED.last_update_at,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		string(s.Status),
		nullTime(s.LastUpdateAt),
		doc,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

// Delete removes a session.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ride_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Find returns the IDs of sessions matching f.
func (r *PostgresRepository) Find(ctx context.Context, f Filter) ([]string, error) {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}

	query := `
		SELECT id FROM ride_sessions
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1))
		  AND ($2::timestamptz IS NULL OR last_update_at < $2)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, statuses, nullTime(f.LastUpdateBefore))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
