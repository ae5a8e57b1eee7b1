package runregistry

import (
	"context"
	"fmt"
	"time"
)

// IntegrationTest_RunLifecycle exercises Create/Update/Get/List/Cancel and
// Reconcile against a real Postgres connection. The caller is responsible
// for having already run EnsureSchema against that connection.
func IntegrationTest_RunLifecycle() error {
	ctx := context.Background()
	s := NewStore()

	r, err := s.Create(ctx, Run{ID: "run-it-0001", ActionType: "opencode_serve", Summary: "integration test run"})
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	if r.Status != StatusQueued {
		return fmt.Errorf("expected new run to be queued, got %s", r.Status)
	}

	running := StatusRunning
	startedAt := time.Now().UTC()
	if err := s.Update(ctx, r.ID, Update{Status: &running, StartedAt: &startedAt}); err != nil {
		return fmt.Errorf("update run to running: %w", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if !ok {
		return fmt.Errorf("expected run %s to exist", r.ID)
	}
	if got.Status != StatusRunning {
		return fmt.Errorf("expected run to be running, got %s", got.Status)
	}
	if got.StartedAt == nil {
		return fmt.Errorf("expected startedAt to be set")
	}

	runs, err := s.List(ctx, 10)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	found := false
	for _, candidate := range runs {
		if candidate.ID == r.ID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("expected list to include %s", r.ID)
	}

	if err := s.Cancel(ctx, r.ID); err != nil {
		return fmt.Errorf("cancel run: %w", err)
	}
	got, _, err = s.Get(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("get run after cancel: %w", err)
	}
	if !got.CancelRequested {
		return fmt.Errorf("expected cancelRequested to be true after Cancel")
	}

	n, err := s.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("expected reconcile to orphan 1 still-running run, got %d", n)
	}

	got, _, err = s.Get(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("get run after reconcile: %w", err)
	}
	if got.Status != StatusFailed {
		return fmt.Errorf("expected reconciled run to be failed, got %s", got.Status)
	}

	return nil
}
