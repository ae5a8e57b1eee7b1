// Package ipcwatcher runs the core's second cooperative loop: a 1-second
// poll of data/ipc/<sourceGroup>/{messages,tasks}/*.json. The directory
// name under data/ipc is the authenticated source identity — there is no
// separate auth token, just the filesystem layout.
package ipcwatcher

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"go.uber.org/zap"
)

// TickInterval is the IPC watcher's cooperative polling period.
const TickInterval = 1 * time.Second

// mainSourceFolder is the privileged source directory name authorized to
// act on any group's chat or task, per the main-group glossary entry.
const mainSourceFolder = "main"

// TaskSink is the task-mutation surface the scheduler exposes; ipcwatcher
// depends only on this interface so the two packages don't need to know
// about each other's internals.
type TaskSink interface {
	ScheduleTask(ctx context.Context, req ScheduleTaskRequest) error
	PauseTask(ctx context.Context, taskID string) error
	ResumeTask(ctx context.Context, taskID string) error
	CancelTask(ctx context.Context, taskID string) error
}

// ScheduleTaskRequest is the validated payload of a schedule_task file.
type ScheduleTaskRequest struct {
	Prompt        string
	GroupFolder   string
	ScheduleType  string
	ScheduleValue string
}

// Watcher owns no shared state beyond the registered-groups document (read
// on every file) and whatever the chat/tasks collaborators own.
type Watcher struct {
	ipcDir string
	state  *corestate.Store
	chat   chat.Chat
	tasks  TaskSink
}

// New builds a Watcher rooted at ipcDir (the data/ipc directory).
func New(ipcDir string, state *corestate.Store, c chat.Chat, tasks TaskSink) *Watcher {
	return &Watcher{ipcDir: ipcDir, state: state, chat: c, tasks: tasks}
}

// Run blocks, ticking every TickInterval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				logger.Error("ipc watcher tick failed", zap.Error(err))
			}
		}
	}
}

// Tick scans the messages/ and tasks/ subdirectories of every directory
// under ipcDir (except errors/) once. A source folder is scanned whether or
// not it is registered; the per-file handlers check only whether the source
// is main or the file targets the source's own folder or chat. A bad
// individual file is quarantined and does not
// abort the rest of the scan (unlike the message loop's all-or-nothing
// batch, since each IPC file is an independent unit of work).
func (w *Watcher) Tick(ctx context.Context) error {
	entries, err := os.ReadDir(w.ipcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read ipc dir %s: %w", w.ipcDir, err)
	}

	for _, e := range entries {
		if !e.IsDir() || e.Name() == "errors" {
			continue
		}
		source := e.Name()
		if err := w.scanSource(ctx, source); err != nil {
			logger.Error("ipc scan source failed", zap.String("source", source), zap.Error(err))
		}
	}
	return nil
}

func (w *Watcher) scanSource(ctx context.Context, source string) error {
	if err := w.scanKind(ctx, source, "messages", w.handleMessage); err != nil {
		return err
	}
	return w.scanKind(ctx, source, "tasks", w.handleTask)
}

func (w *Watcher) scanKind(ctx context.Context, source, kind string, handle func(ctx context.Context, source string, raw []byte) error) error {
	dir := filepath.Join(w.ipcDir, source, kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read ipc file failed", zap.String("path", path), zap.Error(err))
			continue
		}

		if err := handle(ctx, source, raw); err != nil {
			logger.Warn("quarantining ipc file", zap.String("path", path), zap.Error(err))
			if qerr := w.quarantine(source, name, raw); qerr != nil {
				logger.Error("quarantine failed", zap.String("path", path), zap.Error(qerr))
			}
		}
		if err := os.Remove(path); err != nil {
			logger.Error("remove processed ipc file failed", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

func (w *Watcher) quarantine(source, name string, raw []byte) error {
	dir := filepath.Join(w.ipcDir, "errors")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create errors dir: %w", err)
	}
	dest := filepath.Join(dir, fmt.Sprintf("%s-%s", source, name))
	return os.WriteFile(dest, raw, 0644)
}

// base36Max is the largest value that still encodes to exactly 6 base36
// digits (36^6 - 1), bounding the random draw in GenerateFilename.
const base36Max = 2176782335

// GenerateFilename mints the "<ms>-<6 base36>.json" template used by IPC
// producers writing into a messages/ or tasks/ directory.
func GenerateFilename(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(base36Max+1))
	if err != nil {
		return "", fmt.Errorf("generate ipc filename suffix: %w", err)
	}
	suffix := strconv.FormatInt(n.Int64(), 36)
	for len(suffix) < 6 {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("%d-%s.json", now.UnixMilli(), suffix), nil
}
