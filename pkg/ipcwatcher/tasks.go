package ipcwatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// taskFile is the tasks/*.json shape; fields are a superset across the six
// recognized task types, each handler reads only what it needs.
type taskFile struct {
	Type          string `json:"type"`
	TaskID        string `json:"taskId"`
	Prompt        string `json:"prompt"`
	GroupFolder   string `json:"groupFolder"`
	ScheduleType  string `json:"schedule_type"`
	ScheduleValue string `json:"schedule_value"`
	ChatID        string `json:"chatId"`
	IsMainGroup   bool   `json:"isMainGroup"`
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// knownTaskTypes is the closed set of task file types the watcher accepts.
var knownTaskTypes = map[string]bool{
	"schedule_task":  true,
	"pause_task":     true,
	"resume_task":    true,
	"cancel_task":    true,
	"refresh_groups": true,
	"register_group": true,
}

// handleTask validates and applies a tasks/*.json file. Only the main
// source folder may act on another group's task or registration; a
// non-main source may only schedule tasks for itself (GroupFolder must
// equal source) and may not register groups. pause/resume/cancel act on the
// task id alone: neither this handler nor the scheduler checks which group
// owns the task.
func (w *Watcher) handleTask(ctx context.Context, source string, raw []byte) error {
	var t taskFile
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("decode task file: %w", err)
	}
	if !knownTaskTypes[t.Type] {
		return fmt.Errorf("unknown task type %q", t.Type)
	}

	switch t.Type {
	case "schedule_task":
		return w.handleScheduleTask(ctx, source, t)
	case "pause_task":
		return w.tasks.PauseTask(ctx, t.TaskID)
	case "resume_task":
		return w.tasks.ResumeTask(ctx, t.TaskID)
	case "cancel_task":
		return w.tasks.CancelTask(ctx, t.TaskID)
	case "refresh_groups":
		return nil // group registration is file-driven via register_group; nothing to recompute here
	case "register_group":
		return w.handleRegisterGroup(ctx, source, t)
	default:
		return fmt.Errorf("unhandled task type %q", t.Type)
	}
}

func (w *Watcher) handleScheduleTask(ctx context.Context, source string, t taskFile) error {
	if t.Prompt == "" || t.GroupFolder == "" {
		return fmt.Errorf("schedule_task missing prompt or groupFolder")
	}
	if source != mainSourceFolder && t.GroupFolder != source {
		logger.Warn("dropping unauthorized ipc schedule_task", zap.String("source", source), zap.String("groupFolder", t.GroupFolder))
		return nil
	}
	if err := validateSchedule(t.ScheduleType, t.ScheduleValue); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return w.tasks.ScheduleTask(ctx, ScheduleTaskRequest{
		Prompt:        t.Prompt,
		GroupFolder:   t.GroupFolder,
		ScheduleType:  t.ScheduleType,
		ScheduleValue: t.ScheduleValue,
	})
}

func (w *Watcher) handleRegisterGroup(ctx context.Context, source string, t taskFile) error {
	if t.ChatID == "" || t.GroupFolder == "" {
		return fmt.Errorf("register_group missing chatId or groupFolder")
	}
	if source != mainSourceFolder {
		logger.Warn("dropping unauthorized ipc register_group", zap.String("source", source), zap.String("groupFolder", t.GroupFolder))
		return nil
	}
	return w.state.RegisterGroup(registeredGroup(t.ChatID, t.GroupFolder, t.IsMainGroup))
}

// validateSchedule applies the schedule-time validation rules: cron
// expressions must parse, interval must be a positive integer number of
// milliseconds, one-shot timestamps must parse as an ISO-8601 instant.
func validateSchedule(scheduleType, value string) error {
	switch scheduleType {
	case "cron":
		if _, err := cronParser.Parse(value); err != nil {
			return fmt.Errorf("parse cron expression %q: %w", value, err)
		}
		return nil
	case "interval":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("interval must be a positive integer number of milliseconds, got %q", value)
		}
		return nil
	case "once":
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			return fmt.Errorf("one-shot value must be an ISO-8601 instant: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown schedule_type %q", scheduleType)
	}
}
