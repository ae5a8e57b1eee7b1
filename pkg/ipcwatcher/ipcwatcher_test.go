package ipcwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newFakeChat() *fakeChat { return &fakeChat{sent: map[string][]string{}} }

func (f *fakeChat) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}
func (f *fakeChat) FetchNewMessages(ctx context.Context, after time.Time) ([]chat.InboundMessage, error) {
	return nil, nil
}
func (f *fakeChat) RegisterCallback(ctx context.Context, chatID, proposalID string) error { return nil }

type fakeTasks struct {
	mu        sync.Mutex
	scheduled []ScheduleTaskRequest
	paused    []string
	resumed   []string
	cancelled []string
}

func (f *fakeTasks) ScheduleTask(ctx context.Context, req ScheduleTaskRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, req)
	return nil
}
func (f *fakeTasks) PauseTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, id)
	return nil
}
func (f *fakeTasks) ResumeTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, id)
	return nil
}
func (f *fakeTasks) CancelTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func writeIPCFile(t *testing.T, ipcDir, source, kind, name, content string) {
	t.Helper()
	dir := filepath.Join(ipcDir, source, kind)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestHandleMessageFromMainGroupAlwaysAuthorized(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	fc := newFakeChat()
	w := New(ipcDir, state, fc, &fakeTasks{})

	writeIPCFile(t, ipcDir, "main", "messages", "1-aaa.json", `{"type":"message","chatJid":"c1","text":"hello"}`)

	require.NoError(t, w.Tick(context.Background()))
	require.Equal(t, []string{"hello"}, fc.sent["c1"])

	_, err := os.Stat(filepath.Join(ipcDir, "main", "messages", "1-aaa.json"))
	require.True(t, os.IsNotExist(err))
}

func TestHandleMessageFromNonMainOwnedChatIsAuthorized(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	require.NoError(t, state.RegisterGroup(corestate.RegisteredGroup{ChatID: "c1", GroupFolder: "ops"}))
	fc := newFakeChat()
	w := New(ipcDir, state, fc, &fakeTasks{})

	writeIPCFile(t, ipcDir, "ops", "messages", "1-aaa.json", `{"type":"message","chatJid":"c1","text":"from ops"}`)

	require.NoError(t, w.Tick(context.Background()))
	require.Equal(t, []string{"from ops"}, fc.sent["c1"])
}

func TestHandleMessageFromNonMainUnownedChatIsDropped(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	require.NoError(t, state.RegisterGroup(corestate.RegisteredGroup{ChatID: "c1", GroupFolder: "ops"}))
	fc := newFakeChat()
	w := New(ipcDir, state, fc, &fakeTasks{})

	writeIPCFile(t, ipcDir, "ops", "messages", "1-aaa.json", `{"type":"message","chatJid":"other-chat","text":"nope"}`)

	require.NoError(t, w.Tick(context.Background()))
	require.Empty(t, fc.sent["other-chat"])
}

func TestHandleScheduleTaskValidCron(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	tasks := &fakeTasks{}
	w := New(ipcDir, state, newFakeChat(), tasks)

	writeIPCFile(t, ipcDir, "main", "tasks", "1700000000-abc123.json",
		`{"type":"schedule_task","prompt":"check disk","schedule_type":"cron","schedule_value":"0 9 * * *","groupFolder":"main"}`)

	require.NoError(t, w.Tick(context.Background()))
	require.Len(t, tasks.scheduled, 1)
	require.Equal(t, "check disk", tasks.scheduled[0].Prompt)
}

func TestHandleScheduleTaskInvalidCronIsQuarantined(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	tasks := &fakeTasks{}
	w := New(ipcDir, state, newFakeChat(), tasks)

	writeIPCFile(t, ipcDir, "main", "tasks", "bad.json",
		`{"type":"schedule_task","prompt":"check disk","schedule_type":"cron","schedule_value":"not a cron","groupFolder":"main"}`)

	require.NoError(t, w.Tick(context.Background()))
	require.Empty(t, tasks.scheduled)

	_, err := os.Stat(filepath.Join(ipcDir, "errors", "main-bad.json"))
	require.NoError(t, err)
}

func TestHandleScheduleTaskFromNonMainForOtherGroupIsDropped(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	tasks := &fakeTasks{}
	w := New(ipcDir, state, newFakeChat(), tasks)

	writeIPCFile(t, ipcDir, "ops", "tasks", "x.json",
		`{"type":"schedule_task","prompt":"p","schedule_type":"once","schedule_value":"2026-08-01T09:00:00Z","groupFolder":"other"}`)

	require.NoError(t, w.Tick(context.Background()))
	require.Empty(t, tasks.scheduled)

	_, err := os.Stat(filepath.Join(ipcDir, "errors", "ops-x.json"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(ipcDir, "ops", "tasks", "x.json"))
	require.True(t, os.IsNotExist(err))
}

func TestHandleRegisterGroupOnlyFromMain(t *testing.T) {
	ipcDir := t.TempDir()
	state := corestate.New(t.TempDir())
	w := New(ipcDir, state, newFakeChat(), &fakeTasks{})

	writeIPCFile(t, ipcDir, "ops", "tasks", "r.json", `{"type":"register_group","chatId":"c2","groupFolder":"ops2"}`)

	require.NoError(t, w.Tick(context.Background()))
	_, ok, err := state.Group("c2")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = os.Stat(filepath.Join(ipcDir, "errors", "ops-r.json"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(ipcDir, "ops", "tasks", "r.json"))
	require.True(t, os.IsNotExist(err))
}

func TestGenerateFilenameMatchesTemplate(t *testing.T) {
	name, err := GenerateFilename(time.UnixMilli(1700000000123))
	require.NoError(t, err)
	require.Regexp(t, `^1700000000123-[0-9a-z]{6}\.json$`, name)
}
