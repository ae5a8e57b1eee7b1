package scheduler

import (
	"context"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/messageloop"
	"go.uber.org/zap"
)

// TickInterval is the scheduler's cooperative polling period.
const TickInterval = 60 * time.Second

// Loop is the third cooperative loop: fire due tasks by running a planner
// turn as if the stored prompt had just arrived in the owning chat.
type Loop struct {
	store *Store
	tc    messageloop.TurnCollaborators
}

// New builds a Loop against store and the shared turn collaborators (the
// same chat/planner/memory/proposals/state used by the message loop).
func New(store *Store, tc messageloop.TurnCollaborators) *Loop {
	return &Loop{store: store, tc: tc}
}

// Run blocks, ticking every TickInterval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				logger.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

// Tick fires every due task. A failing task is logged and left at its
// current next_run (at-least-once: it will be retried next tick since
// Advance is only called after a task's turn succeeds).
func (l *Loop) Tick(ctx context.Context) error {
	now := time.Now().In(l.store.tz)

	due, err := l.store.DueTasks(ctx, now)
	if err != nil {
		return err
	}

	for _, t := range due {
		if err := messageloop.RunTurn(ctx, l.tc, t.GroupFolder, t.ChatID, t.Prompt, true); err != nil {
			logger.Error("scheduled task turn failed", zap.String("taskId", t.ID), zap.Error(err))
			continue
		}
		if err := l.store.Advance(ctx, t, now); err != nil {
			logger.Error("advance scheduled task failed", zap.String("taskId", t.ID), zap.Error(err))
		}
	}
	return nil
}
