// Package runregistry is the exclusive owner of background run rows: the
// durable record of every opencode_serve run dispatched with
// executionMode "background", backed by a small Postgres table.
package runregistry

import "time"

// Status is a run's position in its lifecycle.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is one background execution row.
type Run struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"actionType"`
	Status          Status     `json:"status"`
	Summary         string     `json:"summary,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ResultText      string     `json:"resultText,omitempty"`
	ErrorText       string     `json:"errorText,omitempty"`
	CancelRequested bool       `json:"cancelRequested"`
}

// Update is a partial update applied by id; nil fields are left unchanged.
type Update struct {
	Status          *Status
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ResultText      *string
	ErrorText       *string
	CancelRequested *bool
}
