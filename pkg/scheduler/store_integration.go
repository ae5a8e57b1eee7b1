package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/ipcwatcher"
)

// IntegrationTest_ScheduleLifecycle exercises ScheduleTask/PauseTask/
// ResumeTask/CancelTask/DueTasks/Advance against a real Postgres
// connection. The caller is responsible for having already run
// EnsureSchema against that connection.
func IntegrationTest_ScheduleLifecycle(dataDir string) error {
	ctx := context.Background()

	state := corestate.New(dataDir)
	if err := state.RegisterGroup(corestate.RegisteredGroup{
		ChatID:      "chat-it-0001",
		GroupFolder: "integration-group",
		IsMainGroup: false,
	}); err != nil {
		return fmt.Errorf("register group: %w", err)
	}

	store := NewStore(state, time.UTC)

	if err := store.ScheduleTask(ctx, ipcwatcher.ScheduleTaskRequest{
		Prompt:        "run the nightly report",
		GroupFolder:   "integration-group",
		ScheduleType:  "interval",
		ScheduleValue: "1000",
	}); err != nil {
		return fmt.Errorf("schedule task: %w", err)
	}

	future := time.Now().Add(time.Hour)
	due, err := store.DueTasks(ctx, future)
	if err != nil {
		return fmt.Errorf("fetch due tasks: %w", err)
	}
	if len(due) != 1 {
		return fmt.Errorf("expected 1 due task, got %d", len(due))
	}
	task := due[0]
	if task.ChatID != "chat-it-0001" {
		return fmt.Errorf("expected resolved chatId chat-it-0001, got %s", task.ChatID)
	}

	if err := store.PauseTask(ctx, task.ID); err != nil {
		return fmt.Errorf("pause task: %w", err)
	}
	due, err = store.DueTasks(ctx, future)
	if err != nil {
		return fmt.Errorf("fetch due tasks after pause: %w", err)
	}
	if len(due) != 0 {
		return fmt.Errorf("expected 0 due tasks while paused, got %d", len(due))
	}

	if err := store.ResumeTask(ctx, task.ID); err != nil {
		return fmt.Errorf("resume task: %w", err)
	}

	if err := store.Advance(ctx, task, time.Now()); err != nil {
		return fmt.Errorf("advance task: %w", err)
	}
	due, err = store.DueTasks(ctx, future)
	if err != nil {
		return fmt.Errorf("fetch due tasks after advance: %w", err)
	}
	if len(due) != 1 {
		return fmt.Errorf("expected the recurring task to still be due within the hour, got %d", len(due))
	}
	if !due[0].NextRun.After(task.NextRun) {
		return fmt.Errorf("expected next_run to have advanced past %s, got %s", task.NextRun, due[0].NextRun)
	}

	if err := store.CancelTask(ctx, task.ID); err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	due, err = store.DueTasks(ctx, future)
	if err != nil {
		return fmt.Errorf("fetch due tasks after cancel: %w", err)
	}
	if len(due) != 0 {
		return fmt.Errorf("expected 0 due tasks after cancel, got %d", len(due))
	}

	return nil
}
