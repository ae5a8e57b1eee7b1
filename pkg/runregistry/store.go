package runregistry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"go.uber.org/zap"
)

const listCap = 100

// Store is the exclusive owner of the runs table. Cancellation abort
// handles live only in-process (not persisted): a process restart loses
// the ability to abort an in-flight call, but the row still reflects
// cancelRequested until Reconcile or the worker itself catches up.
type Store struct {
	mu     sync.Mutex
	aborts map[string]context.CancelFunc
}

// NewStore returns a Store ready to use; the underlying table is accessed
// through pkg/persistence's shared pool.
func NewStore() *Store {
	return &Store{aborts: make(map[string]context.CancelFunc)}
}

// Create inserts a new run row in StatusQueued (unless r.Status is already
// set) and returns it with CreatedAt stamped.
func (s *Store) Create(ctx context.Context, r Run) (Run, error) {
	if r.Status == "" {
		r.Status = StatusQueued
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	_, err := conn.Exec(ctx, `
		INSERT INTO runs (id, action_type, status, summary, created_at, cancel_requested)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ActionType, string(r.Status), r.Summary, r.CreatedAt, r.CancelRequested)
	if err != nil {
		return Run{}, fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return r, nil
}

// Update applies a partial update by id.
func (s *Store) Update(ctx context.Context, id string, u Update) error {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	if u.Status != nil {
		if _, err := conn.Exec(ctx, `UPDATE runs SET status = $1 WHERE id = $2`, string(*u.Status), id); err != nil {
			return fmt.Errorf("update run %s status: %w", id, err)
		}
	}
	if u.StartedAt != nil {
		if _, err := conn.Exec(ctx, `UPDATE runs SET started_at = $1 WHERE id = $2`, *u.StartedAt, id); err != nil {
			return fmt.Errorf("update run %s startedAt: %w", id, err)
		}
	}
	if u.CompletedAt != nil {
		if _, err := conn.Exec(ctx, `UPDATE runs SET completed_at = $1 WHERE id = $2`, *u.CompletedAt, id); err != nil {
			return fmt.Errorf("update run %s completedAt: %w", id, err)
		}
	}
	if u.ResultText != nil {
		if _, err := conn.Exec(ctx, `UPDATE runs SET result_text = $1 WHERE id = $2`, *u.ResultText, id); err != nil {
			return fmt.Errorf("update run %s resultText: %w", id, err)
		}
	}
	if u.ErrorText != nil {
		if _, err := conn.Exec(ctx, `UPDATE runs SET error_text = $1 WHERE id = $2`, *u.ErrorText, id); err != nil {
			return fmt.Errorf("update run %s errorText: %w", id, err)
		}
	}
	if u.CancelRequested != nil {
		if _, err := conn.Exec(ctx, `UPDATE runs SET cancel_requested = $1 WHERE id = $2`, *u.CancelRequested, id); err != nil {
			return fmt.Errorf("update run %s cancelRequested: %w", id, err)
		}
	}
	return nil
}

// Get fetches one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, bool, error) {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	row := conn.QueryRow(ctx, `
		SELECT id, action_type, status, summary, created_at, started_at, completed_at, result_text, error_text, cancel_requested
		FROM runs WHERE id = $1
	`, id)

	r, err := scanRun(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, true, nil
}

// List returns the newest runs, capped at 100 regardless of the requested
// limit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > listCap {
		limit = listCap
	}

	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT id, action_type, status, summary, created_at, started_at, completed_at, result_text, error_text, cancel_requested
		FROM runs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var status string
	if err := row.Scan(&r.ID, &r.ActionType, &status, &r.Summary, &r.CreatedAt,
		&r.StartedAt, &r.CompletedAt, &r.ResultText, &r.ErrorText, &r.CancelRequested); err != nil {
		return Run{}, err
	}
	r.Status = Status(status)
	return r, nil
}

// RegisterAbort records the cancel function for an in-flight background
// run so Cancel can invoke it.
func (s *Store) RegisterAbort(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborts[id] = cancel
}

// ClearAbort removes a run's abort handle once it has reached a terminal
// state.
func (s *Store) ClearAbort(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aborts, id)
}

// Cancel sets cancelRequested and, if an in-process abort handle exists,
// invokes it immediately. The caller (the run's own worker) is responsible
// for observing the cancellation and writing the terminal "cancelled"
// state; Cancel itself does not write status.
func (s *Store) Cancel(ctx context.Context, id string) error {
	cancelled := true
	if err := s.Update(ctx, id, Update{CancelRequested: &cancelled}); err != nil {
		return err
	}

	s.mu.Lock()
	cancel, ok := s.aborts[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Reconcile runs at boot: any row still "running" has, by definition, no
// surviving in-process abort handle (the process that owned it just
// restarted), so it is marked failed rather than left running forever.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
		UPDATE runs SET status = $1, error_text = $2, completed_at = $3
		WHERE status = $4
	`, string(StatusFailed), "orphaned: runner restarted", time.Now().UTC(), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("reconcile orphaned runs: %w", err)
	}

	n := int(tag.RowsAffected())
	if n > 0 {
		logger.Info("reconciled orphaned background runs", zap.Int("count", n))
	}
	return n, nil
}
