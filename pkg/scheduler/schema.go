package scheduler

import (
	"context"
	"fmt"

	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
)

// EnsureSchema creates the scheduled_tasks table if it does not already
// exist. Called once at process bootstrap, alongside pkg/runregistry's
// equivalent for runs.
func EnsureSchema(ctx context.Context) error {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scheduled_tasks (
			id             TEXT PRIMARY KEY,
			prompt         TEXT NOT NULL,
			group_folder   TEXT NOT NULL,
			chat_id        TEXT NOT NULL,
			schedule_type  TEXT NOT NULL,
			schedule_value TEXT NOT NULL,
			status         TEXT NOT NULL,
			next_run       TIMESTAMPTZ NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure scheduled_tasks table: %w", err)
	}
	return nil
}
