package messageloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/approval"
	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/planner"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	mu        sync.Mutex
	messages  []string
	inbound   []chat.InboundMessage
	callbacks []string
}

var _ chat.Chat = (*fakeChat)(nil)

func (f *fakeChat) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeChat) FetchNewMessages(ctx context.Context, after time.Time) ([]chat.InboundMessage, error) {
	return f.inbound, nil
}

func (f *fakeChat) RegisterCallback(ctx context.Context, chatID, proposalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, proposalID)
	return nil
}

type fakePlanner struct {
	calls int
	reply string
}

func (f *fakePlanner) Complete(ctx context.Context, req planner.TurnRequest) (planner.TurnResponse, error) {
	f.calls++
	return planner.TurnResponse{Text: f.reply}, nil
}

type fakeMemory struct{}

func (fakeMemory) BuildHeader(ctx context.Context, groupFolder, prompt string) (string, error) {
	return "", nil
}

func newTestLoop(t *testing.T, fc *fakeChat, fp *fakePlanner) (*Loop, *proposal.Store, *corestate.Store) {
	t.Helper()
	store := proposal.NewStore(t.TempDir())
	state := corestate.New(t.TempDir())
	client := dispatch.New(dispatch.Config{RunnerURL: "http://runner.invalid", Secret: "s"})
	gw := approval.NewGateway(store, client, fc, nil)
	tc := TurnCollaborators{Chat: fc, Planner: fp, Memory: fakeMemory{}, Proposals: store, State: state}
	return New(tc, gw, "nanoclaw"), store, state
}

func TestTickProcessesTriggeredMessageAndEnqueuesProposal(t *testing.T) {
	fc := &fakeChat{inbound: []chat.InboundMessage{
		{ChatID: "c1", Text: "@nanoclaw check uptime on william", Timestamp: time.Now()},
	}}
	fp := &fakePlanner{reply: "On it.\n```json\n{\"actions\":[{\"type\":\"ssh\",\"target\":\"william\",\"command\":\"uptime\",\"reason\":\"check\"}]}\n```"}
	loop, store, state := newTestLoop(t, fc, fp)

	require.NoError(t, state.RegisterGroup(corestate.RegisteredGroup{ChatID: "c1", GroupFolder: "ops", IsMainGroup: false}))

	require.NoError(t, loop.Tick(context.Background()))
	require.Equal(t, 1, fp.calls)

	pending, err := store.ListPendingByChat("c1", 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.callbacks, 1)
	require.Contains(t, fc.messages[0], "On it.")
}

func TestTickSkipsUntriggeredNonMainGroup(t *testing.T) {
	fc := &fakeChat{inbound: []chat.InboundMessage{
		{ChatID: "c1", Text: "just chatting, no trigger here", Timestamp: time.Now()},
	}}
	fp := &fakePlanner{reply: "irrelevant"}
	loop, _, state := newTestLoop(t, fc, fp)

	require.NoError(t, state.RegisterGroup(corestate.RegisteredGroup{ChatID: "c1", GroupFolder: "ops", IsMainGroup: false}))

	require.NoError(t, loop.Tick(context.Background()))
	require.Equal(t, 0, fp.calls)

	wm, err := state.AgentWatermark("c1")
	require.NoError(t, err)
	require.False(t, wm.IsZero())
}

func TestTickMainGroupNeedsNoTrigger(t *testing.T) {
	fc := &fakeChat{inbound: []chat.InboundMessage{
		{ChatID: "main", Text: "status report please", Timestamp: time.Now()},
	}}
	fp := &fakePlanner{reply: "All green.\n```json\n{\"actions\":[]}\n```"}
	loop, _, state := newTestLoop(t, fc, fp)

	require.NoError(t, state.RegisterGroup(corestate.RegisteredGroup{ChatID: "main", GroupFolder: "main", IsMainGroup: true}))

	require.NoError(t, loop.Tick(context.Background()))
	require.Equal(t, 1, fp.calls)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Contains(t, fc.messages[0], "All green.")
}

func TestTickRoutesApprovalCommandToGatewayBypassingPlanner(t *testing.T) {
	fc := &fakeChat{inbound: []chat.InboundMessage{
		{ChatID: "c1", Text: "/approvals", Timestamp: time.Now()},
	}}
	fp := &fakePlanner{reply: "unused"}
	loop, _, state := newTestLoop(t, fc, fp)

	require.NoError(t, state.RegisterGroup(corestate.RegisteredGroup{ChatID: "c1", GroupFolder: "ops", IsMainGroup: false}))

	require.NoError(t, loop.Tick(context.Background()))
	require.Equal(t, 0, fp.calls)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.messages, 1)
	require.Contains(t, fc.messages[0], "pending proposal")
}

func TestTickIgnoresUnregisteredChat(t *testing.T) {
	fc := &fakeChat{inbound: []chat.InboundMessage{
		{ChatID: "unregistered", Text: "@nanoclaw hello", Timestamp: time.Now()},
	}}
	fp := &fakePlanner{reply: "unused"}
	loop, _, _ := newTestLoop(t, fc, fp)

	require.NoError(t, loop.Tick(context.Background()))
	require.Equal(t, 0, fp.calls)
	require.Empty(t, fc.messages)
}
