package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/ipcwatcher"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Store is the exclusive owner of the scheduled_tasks table. It also
// implements pkg/ipcwatcher.TaskSink so the IPC watcher can mutate tasks
// without importing this package's internals.
type Store struct {
	state *corestate.Store
	tz    *time.Location
}

var _ ipcwatcher.TaskSink = (*Store)(nil)

// NewStore builds a Store. tz is the configured scheduler timezone used to
// evaluate cron expressions.
func NewStore(state *corestate.Store, tz *time.Location) *Store {
	if tz == nil {
		tz = time.UTC
	}
	return &Store{state: state, tz: tz}
}

// ScheduleTask validates req's schedule, resolves its owning chat from the
// registered-groups document, computes the initial next_run, and inserts
// a new active task row.
func (s *Store) ScheduleTask(ctx context.Context, req ipcwatcher.ScheduleTaskRequest) error {
	chatID, ok, err := s.state.ChatIDForGroup(req.GroupFolder)
	if err != nil {
		return fmt.Errorf("resolve chat for group %s: %w", req.GroupFolder, err)
	}
	if !ok {
		return fmt.Errorf("group %s is not registered to any chat", req.GroupFolder)
	}

	nextRun, err := firstRun(ScheduleType(req.ScheduleType), req.ScheduleValue, s.tz, time.Now().In(s.tz))
	if err != nil {
		return fmt.Errorf("compute initial next_run: %w", err)
	}

	task := Task{
		ID:            proposal.NewID(),
		Prompt:        req.Prompt,
		GroupFolder:   req.GroupFolder,
		ChatID:        chatID,
		ScheduleType:  ScheduleType(req.ScheduleType),
		ScheduleValue: req.ScheduleValue,
		Status:        StatusActive,
		NextRun:       nextRun,
		CreatedAt:     time.Now().UTC(),
	}

	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	_, err = conn.Exec(ctx, `
		INSERT INTO scheduled_tasks (id, prompt, group_folder, chat_id, schedule_type, schedule_value, status, next_run, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, task.ID, task.Prompt, task.GroupFolder, task.ChatID, string(task.ScheduleType), task.ScheduleValue, string(task.Status), task.NextRun, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scheduled task: %w", err)
	}
	return nil
}

// PauseTask sets a task's status to paused; a paused task is never
// selected by DueTasks until resumed.
func (s *Store) PauseTask(ctx context.Context, taskID string) error {
	return s.setStatus(ctx, taskID, StatusPaused)
}

// ResumeTask sets a paused task's status back to active.
func (s *Store) ResumeTask(ctx context.Context, taskID string) error {
	return s.setStatus(ctx, taskID, StatusActive)
}

// CancelTask permanently stops a task; unlike pause, it is not resumable.
func (s *Store) CancelTask(ctx context.Context, taskID string) error {
	return s.setStatus(ctx, taskID, StatusCancelled)
}

func (s *Store) setStatus(ctx context.Context, taskID string, status Status) error {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	// Cancelled and completed are terminal: such rows are never changed again.
	tag, err := conn.Exec(ctx, `UPDATE scheduled_tasks SET status = $1 WHERE id = $2 AND status NOT IN ($3, $4)`,
		string(status), taskID, string(StatusCancelled), string(StatusCompleted))
	if err != nil {
		return fmt.Errorf("set task %s status to %s: %w", taskID, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no active or paused scheduled task with id %s", taskID)
	}
	return nil
}

// ListAll returns every scheduled task regardless of status, newest first.
// Used by the debug console, which needs visibility beyond what DueTasks
// selects for firing.
func (s *Store) ListAll(ctx context.Context) ([]Task, error) {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT id, prompt, group_folder, chat_id, schedule_type, schedule_value, status, next_run, created_at
		FROM scheduled_tasks ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list scheduled tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DueTasks returns active tasks whose next_run is at or before now.
func (s *Store) DueTasks(ctx context.Context, now time.Time) ([]Task, error) {
	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT id, prompt, group_folder, chat_id, schedule_type, schedule_value, status, next_run, created_at
		FROM scheduled_tasks WHERE status = $1 AND next_run <= $2
	`, string(StatusActive), now)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled task row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Advance recomputes a task's next_run (or marks it completed, for
// one-shot tasks) after a tick has fired it.
func (s *Store) Advance(ctx context.Context, t Task, firedAt time.Time) error {
	if t.ScheduleType == ScheduleOnce {
		return s.setStatus(ctx, t.ID, StatusCompleted)
	}

	next, err := nextRunAfter(t.ScheduleType, t.ScheduleValue, s.tz, firedAt)
	if err != nil {
		return fmt.Errorf("recompute next_run for task %s: %w", t.ID, err)
	}

	conn := persistence.MustGetPooledPostgresSession()
	defer conn.Release()

	if _, err := conn.Exec(ctx, `UPDATE scheduled_tasks SET next_run = $1 WHERE id = $2`, next, t.ID); err != nil {
		return fmt.Errorf("update next_run for task %s: %w", t.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var scheduleType, status string
	if err := row.Scan(&t.ID, &t.Prompt, &t.GroupFolder, &t.ChatID, &scheduleType, &t.ScheduleValue, &status, &t.NextRun, &t.CreatedAt); err != nil {
		return Task{}, err
	}
	t.ScheduleType = ScheduleType(scheduleType)
	t.Status = Status(status)
	return t, nil
}

// firstRun computes a freshly-scheduled task's initial next_run.
func firstRun(scheduleType ScheduleType, value string, tz *time.Location, from time.Time) (time.Time, error) {
	switch scheduleType {
	case ScheduleCron:
		sched, err := cronParser.Parse(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", value, err)
		}
		return sched.Next(from).In(tz), nil
	case ScheduleInterval:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil || ms <= 0 {
			return time.Time{}, fmt.Errorf("interval must be a positive integer number of milliseconds, got %q", value)
		}
		return from.Add(time.Duration(ms) * time.Millisecond), nil
	case ScheduleOnce:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("one-shot value must be an ISO-8601 instant: %w", err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unknown schedule type %q", scheduleType)
	}
}

// nextRunAfter recomputes next_run for a recurring task after it fired.
func nextRunAfter(scheduleType ScheduleType, value string, tz *time.Location, firedAt time.Time) (time.Time, error) {
	return firstRun(scheduleType, value, tz, firedAt)
}
