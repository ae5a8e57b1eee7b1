// Package scheduler is the exclusive owner of scheduled task rows: the
// third cooperative loop, firing cron / interval / one-shot tasks by
// running a planner turn as if it were a live chat message.
package scheduler

import "time"

// Status is a scheduled task's lifecycle position.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ScheduleType is the closed set of ways a task's next_run is computed.
type ScheduleType string

const (
	ScheduleCron     ScheduleType = "cron"
	ScheduleInterval ScheduleType = "interval"
	ScheduleOnce     ScheduleType = "once"
)

// Task is one scheduled_tasks row.
type Task struct {
	ID            string
	Prompt        string
	GroupFolder   string
	ChatID        string
	ScheduleType  ScheduleType
	ScheduleValue string
	Status        Status
	NextRun       time.Time
	CreatedAt     time.Time
}
