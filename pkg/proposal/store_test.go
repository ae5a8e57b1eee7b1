package proposal

import (
	"sync"
	"testing"

	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/stretchr/testify/require"
)

func sampleAction() plan.Action {
	reason := "check load"
	approve := true
	return plan.Action{
		Type:             plan.ActionSSH,
		Target:           plan.SSHTargetWilliam,
		Command:          "uptime",
		Reason:           reason,
		RequiresApproval: &approve,
	}
}

func TestEnqueueRejectsZeroActions(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Enqueue(Proposal{ChatID: "chat-1"})
	require.ErrorIs(t, err, ErrZeroActions)
}

func TestEnqueueThenGetByID(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Enqueue(Proposal{ChatID: "chat-1", Actions: []plan.Action{sampleAction()}})
	require.NoError(t, err)
	require.Equal(t, StatusProposed, p.Status)
	require.NotEmpty(t, p.ID)

	got, ok, err := s.GetByID(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p.ID, got.ID)
}

func TestListPendingByChatFiltersAndCaps(t *testing.T) {
	s := NewStore(t.TempDir())
	for i := 0; i < 7; i++ {
		_, err := s.Enqueue(Proposal{ChatID: "chat-1", Actions: []plan.Action{sampleAction()}})
		require.NoError(t, err)
	}
	_, err := s.Enqueue(Proposal{ChatID: "chat-2", Actions: []plan.Action{sampleAction()}})
	require.NoError(t, err)

	pending, err := s.ListPendingByChat("chat-1", 5)
	require.NoError(t, err)
	require.Len(t, pending, 5)
	for _, p := range pending {
		require.Equal(t, "chat-1", p.ChatID)
	}
}

func TestDecideApproveTransitionsOnce(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Enqueue(Proposal{ChatID: "chat-1", Actions: []plan.Action{sampleAction()}})
	require.NoError(t, err)

	res, ok, err := s.Decide(p.ID, DecisionApprove, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, res.Applied)
	require.Equal(t, StatusApproved, res.Proposal.Status)
	require.NotNil(t, res.Proposal.DecidedAt)

	res2, ok, err := s.Decide(p.ID, DecisionApprove, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, res2.Applied)
	require.Equal(t, StatusApproved, res2.AlreadyAt)
}

func TestDecideUnknownIDNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	_, ok, err := s.Decide("nope", DecisionApprove, "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecideDenyWithReasonPersists(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Enqueue(Proposal{ChatID: "chat-1", Actions: []plan.Action{sampleAction()}})
	require.NoError(t, err)

	res, ok, err := s.Decide(p.ID, DecisionDeny, "too risky")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, res.Applied)
	require.Equal(t, StatusDenied, res.Proposal.Status)
	require.Equal(t, "too risky", res.Proposal.DecisionReason)

	got, _, err := s.GetByID(p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, got.Status)
}

func TestDecideRaceOnlyFirstApplies(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Enqueue(Proposal{ChatID: "chat-1", Actions: []plan.Action{sampleAction()}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	applied := make([]bool, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, _, _ := s.Decide(p.ID, DecisionApprove, "")
		applied[0] = res.Applied
	}()
	go func() {
		defer wg.Done()
		res, _, _ := s.Decide(p.ID, DecisionDeny, "")
		applied[1] = res.Applied
	}()
	wg.Wait()

	require.True(t, applied[0] != applied[1], "exactly one decision must win the race")
}
