package dispatch

import (
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
)

// HeaderDispatchID, HeaderSignatureTS, and HeaderSignature are the three
// headers carried on every signed POST to the runner.
const (
	HeaderDispatchID  = "x-nanoclaw-dispatch-id"
	HeaderSignatureTS = "x-nanoclaw-signature-ts"
	HeaderSignature   = "x-nanoclaw-signature"

	// HeaderRunnerSecret authenticates the plain run-management endpoints
	// (not /dispatch, which authenticates by HMAC instead).
	HeaderRunnerSecret = "x-ops-runner-secret"

	sourceCore = "core"
	eventName  = "approved_actions.dispatch"
)

// Envelope is the wire body posted to the runner's /dispatch endpoint.
type Envelope struct {
	Event       string       `json:"event"`
	DispatchID  string       `json:"dispatchId"`
	DispatchedAt time.Time   `json:"dispatchedAt"`
	Source      string       `json:"source"`
	Actions     []plan.Action `json:"actions"`
}

// NewEnvelope builds the envelope for one dispatch of actions, stamping
// dispatchID and the current time.
func NewEnvelope(dispatchID string, actions []plan.Action) Envelope {
	return Envelope{
		Event:        eventName,
		DispatchID:   dispatchID,
		DispatchedAt: time.Now().UTC(),
		Source:       sourceCore,
		Actions:      actions,
	}
}

// ActionResult is one action's outcome, returned in the same order as the
// actions in the envelope so callers can zip inputs to outputs positionally.
type ActionResult struct {
	Status     string `json:"status"` // "completed" | "failed" | "blocked" | "skipped"
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	ExitCode   *int   `json:"exitCode,omitempty"`
	DurationMS int64  `json:"durationMs,omitempty"`
	Cause      string `json:"cause,omitempty"`
	RunID      string `json:"runId,omitempty"`
	Output     string `json:"output,omitempty"`
}

// Response is the runner's /dispatch reply body.
type Response struct {
	Success    bool           `json:"success"`
	DispatchID string         `json:"dispatchId"`
	Results    []ActionResult `json:"results"`
}
