// Package proposal owns the append-only proposal journal: the single place
// a parsed plan becomes a durable record awaiting human approval. Status
// is mutated only through Store.Decide, called by the Approval Gateway and
// by the debug console's approve/deny commands; every other reader gets a
// snapshot.
package proposal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
)

// Status is the proposal's position in its three-state machine. Only
// StatusProposed may transition, and only to StatusApproved or StatusDenied.
type Status string

const (
	StatusProposed Status = "proposed"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Proposal ties a parsed plan to the chat that produced it, awaiting
// human approval. Once Status leaves StatusProposed it is immutable except
// for the one terminal write that moved it there.
type Proposal struct {
	ID              string      `json:"id"`
	CreatedAt       time.Time   `json:"createdAt"`
	Status          Status      `json:"status"`
	GroupFolder     string      `json:"groupFolder"`
	ChatID          string      `json:"chatId"`
	RequestText     string      `json:"requestText,omitempty"`
	Actions         []plan.Action `json:"actions"`
	DecidedAt       *time.Time  `json:"decidedAt,omitempty"`
	DecisionReason  string      `json:"decisionReason,omitempty"`
}

// NewID mints an opaque proposal id. Uniqueness is the only contract; the
// format itself carries no meaning.
func NewID() string {
	return uuid.NewString()
}

// Decision is the outcome of a /approve or /deny (or inline-button
// equivalent) request against a specific proposal id.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// DecideResult reports what happened to a decide call, distinguishing a
// fresh transition from a race where someone else's decision already won.
type DecideResult struct {
	Proposal   Proposal
	Applied    bool
	AlreadyAt  Status
}

// ErrZeroActions is returned by Enqueue when the proposal carries no
// actions; such proposals are rejected outright rather than persisted as
// an inert record.
var ErrZeroActions = fmt.Errorf("proposal must have at least one action")
