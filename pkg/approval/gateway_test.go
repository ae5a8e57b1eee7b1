package approval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/nanoclaw-ops/nanoclaw/pkg/planner"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	lastPrompt string
	summary    string
}

var _ planner.Planner = (*fakePlanner)(nil)

func (f *fakePlanner) Complete(ctx context.Context, req planner.TurnRequest) (planner.TurnResponse, error) {
	f.lastPrompt = req.UserPrompt
	return planner.TurnResponse{Text: f.summary}, nil
}

type fakeChat struct {
	mu       sync.Mutex
	messages []string
}

var _ chat.Chat = (*fakeChat)(nil)

func (f *fakeChat) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeChat) FetchNewMessages(ctx context.Context, after time.Time) ([]chat.InboundMessage, error) {
	return nil, nil
}

func (f *fakeChat) RegisterCallback(ctx context.Context, chatID, proposalID string) error {
	return nil
}

func sampleSSHAction() plan.Action {
	approve := true
	return plan.Action{Type: plan.ActionSSH, Target: plan.SSHTargetWilliam, Command: "uptime", Reason: "check", RequiresApproval: &approve}
}

func TestHandleTextApprovalsListsPending(t *testing.T) {
	store := proposal.NewStore(t.TempDir())
	_, err := store.Enqueue(proposal.Proposal{ChatID: "c1", Actions: []plan.Action{sampleSSHAction()}})
	require.NoError(t, err)

	fc := &fakeChat{}
	client := dispatch.New(dispatch.Config{RunnerURL: "http://runner.invalid", Secret: "s"})
	gw := NewGateway(store, client, fc, nil)

	require.NoError(t, gw.HandleText(context.Background(), "c1", "/approvals"))
	require.Len(t, fc.messages, 1)
	require.Contains(t, fc.messages[0], "pending proposal")
}

func TestHandleTextDenyAcknowledges(t *testing.T) {
	store := proposal.NewStore(t.TempDir())
	p, err := store.Enqueue(proposal.Proposal{ChatID: "c1", Actions: []plan.Action{sampleSSHAction()}})
	require.NoError(t, err)

	fc := &fakeChat{}
	client := dispatch.New(dispatch.Config{RunnerURL: "http://runner.invalid", Secret: "s"})
	gw := NewGateway(store, client, fc, nil)

	require.NoError(t, gw.HandleText(context.Background(), "c1", "/deny "+p.ID+" too risky"))
	require.Len(t, fc.messages, 1)
	require.Contains(t, fc.messages[0], "denied")
}

func TestHandleCallbackApproveDispatchesAndRendersResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env dispatch.Envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		exit := 0
		resp := dispatch.Response{
			Success:    true,
			DispatchID: env.DispatchID,
			Results: []dispatch.ActionResult{
				{Status: "completed", Stdout: "up 3 days", ExitCode: &exit},
			},
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	store := proposal.NewStore(t.TempDir())
	p, err := store.Enqueue(proposal.Proposal{ChatID: "c1", Actions: []plan.Action{sampleSSHAction()}})
	require.NoError(t, err)

	fc := &fakeChat{}
	client := dispatch.New(dispatch.Config{RunnerURL: server.URL, Secret: "s", EnableApprovedExecution: true})
	gw := NewGateway(store, client, fc, nil)

	require.NoError(t, gw.HandleCallback(context.Background(), "c1", "approve:"+p.ID))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.GreaterOrEqual(t, len(fc.messages), 2)
	require.Contains(t, fc.messages[0], "approved")
	require.Contains(t, fc.messages[1], "up 3 days")
}

func TestHandleCallbackApproveSummarizesWebFetchThroughPlanner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env dispatch.Envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		resp := dispatch.Response{
			Success:    true,
			DispatchID: env.DispatchID,
			Results: []dispatch.ActionResult{
				{Status: "completed", Stdout: "<html>a very long page body...</html>"},
			},
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	action := plan.Action{Type: plan.ActionWebFetch, URL: "https://example.com", Reason: "check docs"}
	store := proposal.NewStore(t.TempDir())
	p, err := store.Enqueue(proposal.Proposal{ChatID: "c1", Actions: []plan.Action{action}})
	require.NoError(t, err)

	fc := &fakeChat{}
	client := dispatch.New(dispatch.Config{RunnerURL: server.URL, Secret: "s", EnableApprovedExecution: true})
	fp := &fakePlanner{summary: "short summary of the page"}
	gw := NewGateway(store, client, fc, fp)

	require.NoError(t, gw.HandleCallback(context.Background(), "c1", "approve:"+p.ID))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.GreaterOrEqual(t, len(fc.messages), 2)
	require.Contains(t, fc.messages[1], "short summary of the page")
	require.NotContains(t, fc.messages[1], "a very long page body")
	require.Contains(t, fp.lastPrompt, "https://example.com")
}

func TestHandleDecideUnknownID(t *testing.T) {
	store := proposal.NewStore(t.TempDir())
	fc := &fakeChat{}
	client := dispatch.New(dispatch.Config{RunnerURL: "http://runner.invalid", Secret: "s"})
	gw := NewGateway(store, client, fc, nil)

	require.NoError(t, gw.HandleText(context.Background(), "c1", "/approve does-not-exist"))
	require.Len(t, fc.messages, 1)
	require.Contains(t, fc.messages[0], "no proposal")
}
