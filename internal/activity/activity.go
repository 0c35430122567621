// Package activity keeps a log of bulk actions and import runs together
// with the per-record failures they produced.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/bulk"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
)

// ErrNotFound indicates no run exists for the id.
var ErrNotFound = errors.New("activity run not found")

// Kind classifies a run.
type Kind string

const (
	KindBulkAction Kind = "bulk_action"
	KindImport     Kind = "import"
)

// Run is one recorded batch.
type Run struct {
	ID        uuid.UUID      `json:"id"`
	Kind      Kind           `json:"kind"`
	Subject   string         `json:"subject"`
	Actor     string         `json:"actor,omitempty"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []bulk.Failure `json:"failures,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository stores runs in activity_runs and activity_failures.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository returns a repository backed by the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool, now: time.Now}
}

func newRepositoryWithDB(conn dbtx) *Repository {
	return &Repository{db: conn, now: time.Now}
}

func (r *Repository) withTx(ctx context.Context, fn func(dbtx) error) error {
	if r.pool == nil {
		return fn(r.db)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// Record inserts the run and its failures atomically.
func (r *Repository) Record(ctx context.Context, run Run) error {
	if run.Kind == "" || run.Subject == "" {
		return errors.New("activity run requires kind and subject")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	return r.withTx(ctx, func(q dbtx) error {
		_, err := q.Exec(ctx, `INSERT INTO activity_runs (id, kind, subject, actor, succeeded, failed, created_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)`,
			run.ID.String(), string(run.Kind), run.Subject, run.Actor, run.Succeeded, run.Failed, run.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert activity run: %w", err)
		}
		for _, f := range run.Failures {
			if _, err := q.Exec(ctx, `INSERT INTO activity_failures (run_id, record_id, message) VALUES ($1::uuid, $2, $3)`,
				run.ID.String(), f.ID, f.Message); err != nil {
				return fmt.Errorf("insert activity failure: %w", err)
			}
		}
		return nil
	})
}

// List returns the most recent runs without their failures.
func (r *Repository) List(ctx context.Context, kind Kind, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id::text, kind, subject, actor, succeeded, failed, created_at
FROM activity_runs
WHERE ($1 = '' OR kind = $1)
ORDER BY created_at DESC
LIMIT $2`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list activity runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run with its failures.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT id::text, kind, subject, actor, succeeded, failed, created_at
FROM activity_runs WHERE id = $1::uuid`, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT record_id, message FROM activity_failures WHERE run_id = $1::uuid ORDER BY record_id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list activity failures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f bulk.Failure
		if err := rows.Scan(&f.ID, &f.Message); err != nil {
			return nil, err
		}
		run.Failures = append(run.Failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

func scanRun(row pgx.Row) (Run, error) {
	var (
		run  Run
		id   string
		kind string
	)
	if err := row.Scan(&id, &kind, &run.Subject, &run.Actor, &run.Succeeded, &run.Failed, &run.CreatedAt); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("parse run id: %w", err)
	}
	run.ID = parsed
	run.Kind = Kind(kind)
	return run, nil
}

// Prune deletes runs older than retention, failures included, and returns
// how many runs were removed.
func (r *Repository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, errors.New("activity retention must be positive")
	}
	cutoff := r.now().UTC().Add(-retention)
	var removed int64
	err := r.withTx(ctx, func(q dbtx) error {
		if _, err := q.Exec(ctx, `DELETE FROM activity_failures WHERE run_id IN (SELECT id FROM activity_runs WHERE created_at < $1)`, cutoff); err != nil {
			return fmt.Errorf("prune activity failures: %w", err)
		}
		tag, err := q.Exec(ctx, `DELETE FROM activity_runs WHERE created_at < $1`, cutoff)
		if err != nil {
			return fmt.Errorf("prune activity runs: %w", err)
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}
