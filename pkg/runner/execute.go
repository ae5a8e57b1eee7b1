package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runner/actions"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/nanoclaw-ops/nanoclaw/pkg/safety"
	"github.com/tuvistavie/securerandom"
	"go.uber.org/zap"
)

// Service ties configuration, the run registry, and the action executors
// together. It is the receiver for every HTTP handler.
type Service struct {
	cfg     Config
	runs    *runregistry.Store
	sem     chan struct{}
}

// NewService builds a Service bounding grouped-action concurrency at
// cfg.maxParallel().
func NewService(cfg Config, runs *runregistry.Store) *Service {
	return &Service{
		cfg:  cfg,
		runs: runs,
		sem:  make(chan struct{}, cfg.maxParallel()),
	}
}

// Execute partitions actions into ungrouped (run serially, in declaration
// order) and grouped (run concurrently, bounded by max_parallel), then
// writes each result to the same index as its originating action so
// callers can zip inputs to outputs.
func (s *Service) Execute(ctx context.Context, actionsList []plan.Action) []dispatch.ActionResult {
	results := make([]dispatch.ActionResult, len(actionsList))

	var grouped []int
	for i, a := range actionsList {
		if a.ParallelGroup != "" {
			grouped = append(grouped, i)
			continue
		}
		results[i] = s.executeOne(ctx, actionsList[i])
	}

	if len(grouped) > 0 {
		var wg sync.WaitGroup
		for _, idx := range grouped {
			idx := idx
			wg.Add(1)
			s.sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-s.sem }()
				results[idx] = s.executeOne(ctx, actionsList[idx])
			}()
		}
		wg.Wait()
	}

	return results
}

func (s *Service) executeOne(ctx context.Context, a plan.Action) dispatch.ActionResult {
	start := time.Now()
	switch a.Type {
	case plan.ActionSSH:
		return s.executeSSH(ctx, a, start)
	case plan.ActionWebFetch:
		return s.executeWebFetch(ctx, a, start)
	case plan.ActionImageToText:
		return s.executeImageToText(ctx, a, start)
	case plan.ActionVoiceToText:
		return s.executeVoiceToText(ctx, a, start)
	case plan.ActionOpencodeServe:
		return s.executeOpencodeServe(ctx, a, start)
	case plan.ActionObsidianWrite, plan.ActionAddonInstall, plan.ActionAddonCreate, plan.ActionAddonRun:
		// Executable in principle but no external collaborator is wired
		// for these in this deployment; report as failed rather than
		// silently no-op.
		return dispatch.ActionResult{Status: "failed", Cause: fmt.Sprintf("no executor configured for action type %q", a.Type)}
	default:
		return dispatch.ActionResult{Status: "failed", Cause: fmt.Sprintf("runner cannot execute action type %q", a.Type)}
	}
}

func (s *Service) executeSSH(ctx context.Context, a plan.Action, start time.Time) dispatch.ActionResult {
	if err := safety.CheckSSHCommand(a.Command); err != nil {
		return dispatch.ActionResult{Status: "blocked", Cause: err.Error()}
	}
	host, ok := s.cfg.SSHHosts[string(a.Target)]
	if !ok {
		return dispatch.ActionResult{Status: "blocked", Cause: fmt.Sprintf("ssh target %q is not configured", a.Target)}
	}

	res, err := actions.RunSSH(ctx, host, a.Command, s.cfg.sshWallClock())
	if err != nil {
		return dispatch.ActionResult{Status: "failed", Cause: err.Error(), DurationMS: time.Since(start).Milliseconds()}
	}

	status := "completed"
	exitCode := res.ExitCode
	if exitCode != 0 {
		status = "failed"
	}
	return dispatch.ActionResult{
		Status:     status,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitCode:   &exitCode,
		DurationMS: res.DurationMS,
	}
}

func (s *Service) executeWebFetch(ctx context.Context, a plan.Action, start time.Time) dispatch.ActionResult {
	if err := safety.CheckWebFetchURLResolved(ctx, a.URL); err != nil {
		return dispatch.ActionResult{Status: "blocked", Cause: err.Error()}
	}
	if err := safety.RequiresApprovalForBrowserMode(string(a.Mode), a.Approval()); err != nil {
		return dispatch.ActionResult{Status: "blocked", Cause: err.Error()}
	}

	var (
		res WebFetchOutcome
		err error
	)
	if a.Mode == plan.WebFetchModeBrowser {
		res, err = s.fetchBrowserWithFallback(ctx, a.URL)
	} else {
		wf, ferr := actions.FetchHTTP(ctx, a.URL, s.cfg.httpFetchTimeout())
		res, err = WebFetchOutcome(wf), ferr
	}
	if err != nil {
		return dispatch.ActionResult{Status: "failed", Cause: err.Error(), DurationMS: time.Since(start).Milliseconds()}
	}

	return dispatch.ActionResult{
		Status:     "completed",
		Stdout:     res.Body,
		Output:     fmt.Sprintf("url=%s status=%d contentType=%s title=%s", res.URL, res.Status, res.ContentType, res.Title),
		DurationMS: time.Since(start).Milliseconds(),
	}
}

// WebFetchOutcome aliases actions.WebFetchResult so execute.go doesn't need
// to import actions under two names.
type WebFetchOutcome = actions.WebFetchResult

func (s *Service) fetchBrowserWithFallback(ctx context.Context, url string) (WebFetchOutcome, error) {
	res, err := actions.FetchBrowser(ctx, url, s.cfg.httpFetchTimeout())
	if err == nil {
		return res, nil
	}
	logger.Warn("headless browser fetch failed, falling back to readable mirror", zap.String("url", url), zap.Error(err))

	res, mirrorErr := actions.FetchReadableMirror(ctx, url, s.cfg.httpFetchTimeout())
	if mirrorErr != nil {
		return WebFetchOutcome{}, fmt.Errorf("browser fetch failed (%v) and readable mirror fallback also failed: %w", err, mirrorErr)
	}
	return res, nil
}

func (s *Service) executeImageToText(ctx context.Context, a plan.Action, start time.Time) dispatch.ActionResult {
	out, err := actions.ForwardImageToText(ctx, s.cfg.MediaForward, a.ImageURL, a.Prompt, s.cfg.mediaForwardTimeout())
	if err != nil {
		return dispatch.ActionResult{Status: "failed", Cause: err.Error(), DurationMS: time.Since(start).Milliseconds()}
	}
	return dispatch.ActionResult{Status: "completed", Output: out, DurationMS: time.Since(start).Milliseconds()}
}

func (s *Service) executeVoiceToText(ctx context.Context, a plan.Action, start time.Time) dispatch.ActionResult {
	out, err := actions.ForwardVoiceToText(ctx, s.cfg.MediaForward, a.AudioURL, a.Language, s.cfg.mediaForwardTimeout())
	if err != nil {
		return dispatch.ActionResult{Status: "failed", Cause: err.Error(), DurationMS: time.Since(start).Milliseconds()}
	}
	return dispatch.ActionResult{Status: "completed", Output: out, DurationMS: time.Since(start).Milliseconds()}
}

func (s *Service) executeOpencodeServe(ctx context.Context, a plan.Action, start time.Time) dispatch.ActionResult {
	timeout := s.cfg.opencodeTimeout()
	if a.Timeout > 0 {
		timeout = time.Duration(a.Timeout) * time.Second
	}

	if a.ExecutionMode != plan.ExecutionBackground {
		out, err := actions.CallOpencode(ctx, s.cfg.Opencode, a.Task, a.Cwd, string(plan.ExecutionForeground), timeout)
		if err != nil {
			return dispatch.ActionResult{Status: "failed", Cause: err.Error(), DurationMS: time.Since(start).Milliseconds()}
		}
		return dispatch.ActionResult{Status: "completed", Output: out, DurationMS: time.Since(start).Milliseconds()}
	}

	runID, err := newRunID()
	if err != nil {
		return dispatch.ActionResult{Status: "failed", Cause: fmt.Sprintf("could not mint run id: %v", err)}
	}
	run, err := s.runs.Create(ctx, runregistry.Run{
		ID:         runID,
		ActionType: string(plan.ActionOpencodeServe),
		Summary:    a.Task,
	})
	if err != nil {
		return dispatch.ActionResult{Status: "failed", Cause: fmt.Sprintf("could not create run row: %v", err)}
	}

	workerCtx, cancel := context.WithTimeout(context.Background(), timeout)
	s.runs.RegisterAbort(runID, cancel)

	go s.runBackgroundOpencode(workerCtx, cancel, run, a)

	return dispatch.ActionResult{
		Status: "completed",
		RunID:  runID,
		Output: fmt.Sprintf("background run %s queued", runID),
	}
}

func (s *Service) runBackgroundOpencode(ctx context.Context, cancel context.CancelFunc, run runregistry.Run, a plan.Action) {
	defer cancel()
	defer s.runs.ClearAbort(run.ID)

	running := runregistry.StatusRunning
	now := time.Now().UTC()
	if err := s.runs.Update(context.Background(), run.ID, runregistry.Update{Status: &running, StartedAt: &now}); err != nil {
		logger.Error("failed to mark background run running", zap.String("runId", run.ID), zap.Error(err))
	}

	out, err := actions.CallOpencode(ctx, s.cfg.Opencode, a.Task, a.Cwd, string(plan.ExecutionBackground), 0)

	completedAt := time.Now().UTC()
	if ctx.Err() == context.Canceled {
		cancelled := runregistry.StatusCancelled
		_ = s.runs.Update(context.Background(), run.ID, runregistry.Update{Status: &cancelled, CompletedAt: &completedAt})
		return
	}
	if err != nil {
		failed := runregistry.StatusFailed
		errText := err.Error()
		_ = s.runs.Update(context.Background(), run.ID, runregistry.Update{Status: &failed, CompletedAt: &completedAt, ErrorText: &errText})
		return
	}

	completed := runregistry.StatusCompleted
	_ = s.runs.Update(context.Background(), run.ID, runregistry.Update{Status: &completed, CompletedAt: &completedAt, ResultText: &out})
}

// newRunID mints a "run-<hex>" id for a background opencode_serve worker.
func newRunID() (string, error) {
	suffix, err := securerandom.Hex(8)
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return "run-" + suffix, nil
}
