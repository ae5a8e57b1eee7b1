package runregistry

import (
	"context"
	"fmt"

	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
)

// EnsureSchema creates the runs table if it does not already exist. Called
// once at process bootstrap, alongside pkg/scheduler's equivalent for
// scheduled_tasks.
func EnsureSchema(ctx context.Context) error {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			action_type      TEXT NOT NULL,
			status           TEXT NOT NULL,
			summary          TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL,
			started_at       TIMESTAMPTZ,
			completed_at     TIMESTAMPTZ,
			result_text      TEXT NOT NULL DEFAULT '',
			error_text       TEXT NOT NULL DEFAULT '',
			cancel_requested BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure runs table: %w", err)
	}
	return nil
}
