package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/nanoclaw-ops/nanoclaw/pkg/safety"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the dispatcher's runtime configuration.
type Config struct {
	RunnerURL                   string
	Secret                      string
	Timeout                     time.Duration
	EnableLocalApprovedExecution bool

	// EnableApprovedExecution is the operator-facing kill switch. When
	// false, Send never reaches the runner: every action is returned as
	// "skipped" without a preflight check or an outbound call.
	EnableApprovedExecution bool

	// RatePerSecond caps how often Send may post to the runner, smoothing
	// bursts from several chats approving proposals at once. Zero means
	// the default of 5/s.
	RatePerSecond float64
}

// Client posts approved action batches to the runner and interprets the
// results. It has no side effects beyond the outbound POST: the
// EnableLocalApprovedExecution flag is a test-only escape hatch, disabled
// by default, and Send refuses to execute anything itself regardless.
type Client struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
}

// New builds a Client against cfg. The underlying resty client carries
// cfg.Timeout as its request timeout.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &Client{
		cfg:     cfg,
		http:    resty.New().SetTimeout(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// Send applies the pre-dispatch safety filters, posts whatever survives to
// the runner, and returns one result per input action, positionally zipped.
// Filtered actions never leave the process: their slot in the result list
// is synthesized locally as "blocked".
func (c *Client) Send(ctx context.Context, actions []plan.Action) ([]ActionResult, error) {
	if c.cfg.EnableLocalApprovedExecution {
		return nil, fmt.Errorf("local approved execution is disabled by default and must not be enabled outside tests")
	}

	if !c.cfg.EnableApprovedExecution {
		results := make([]ActionResult, len(actions))
		for i := range results {
			results[i] = ActionResult{Status: "skipped", Cause: "approved execution is disabled"}
		}
		return results, nil
	}

	results := make([]ActionResult, len(actions))
	var toSend []plan.Action
	sendIndex := make([]int, 0, len(actions))

	for i, a := range actions {
		if cause := preflight(a); cause != "" {
			results[i] = ActionResult{Status: "blocked", Cause: cause}
			continue
		}
		toSend = append(toSend, a)
		sendIndex = append(sendIndex, i)
	}

	if len(toSend) == 0 {
		return results, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for dispatch rate limiter: %w", err)
	}

	dispatchID := uuid.NewString()
	env := NewEnvelope(dispatchID, toSend)

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch envelope: %w", err)
	}

	ts := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	sig := Sign(ts, string(body), c.cfg.Secret)

	var parsed Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetHeader(HeaderDispatchID, dispatchID).
		SetHeader(HeaderSignatureTS, ts).
		SetHeader(HeaderSignature, "sha256="+sig).
		SetBody(body).
		SetResult(&parsed).
		Post(c.cfg.RunnerURL)

	if err != nil {
		logger.Error("dispatch request failed", zap.Error(err), zap.String("dispatchId", dispatchID))
		for _, idx := range sendIndex {
			results[idx] = ActionResult{Status: "failed", Cause: err.Error()}
		}
		return results, nil
	}

	if resp.IsError() {
		logger.Error("dispatch rejected", zap.Int("status", resp.StatusCode()), zap.String("dispatchId", dispatchID))
		for _, idx := range sendIndex {
			results[idx] = ActionResult{Status: "failed", Cause: fmt.Sprintf("runner returned %d", resp.StatusCode())}
		}
		return results, nil
	}

	for i, idx := range sendIndex {
		if i < len(parsed.Results) {
			results[idx] = parsed.Results[i]
		} else {
			results[idx] = ActionResult{Status: "failed", Cause: "runner returned fewer results than actions sent"}
		}
	}
	return results, nil
}

// preflight returns a non-empty block cause if a is rejected by the
// pre-dispatch safety filters, or "" if it may proceed to the runner.
func preflight(a plan.Action) string {
	switch a.Type {
	case plan.ActionSSH:
		if err := safety.CheckSSHCommand(a.Command); err != nil {
			return err.Error()
		}
	case plan.ActionWebFetch:
		if err := safety.CheckWebFetchURL(a.URL); err != nil {
			return err.Error()
		}
		if err := safety.RequiresApprovalForBrowserMode(string(a.Mode), a.Approval()); err != nil {
			return err.Error()
		}
	}
	return ""
}
