package corestate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdvanceWatermarkUpdatesGlobalAndPerChat(t *testing.T) {
	s := New(t.TempDir())
	ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.AdvanceWatermark("chat-1", ts))

	got, err := s.AgentWatermark("chat-1")
	require.NoError(t, err)
	require.True(t, got.Equal(ts))

	state, err := s.RouterState()
	require.NoError(t, err)
	require.True(t, state.LastTimestamp.Equal(ts))
}

func TestAdvanceWatermarkDoesNotRegressGlobal(t *testing.T) {
	s := New(t.TempDir())
	later := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, s.AdvanceWatermark("chat-1", later))
	require.NoError(t, s.AdvanceWatermark("chat-2", earlier))

	state, err := s.RouterState()
	require.NoError(t, err)
	require.True(t, state.LastTimestamp.Equal(later))

	chat2, err := s.AgentWatermark("chat-2")
	require.NoError(t, err)
	require.True(t, chat2.Equal(earlier))
}

func TestSessionRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	_, ok, err := s.Session("main")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetSession("main", "sess-123"))

	id, ok, err := s.Session("main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sess-123", id)
}

func TestRegisterAndUnregisterGroup(t *testing.T) {
	s := New(t.TempDir())
	g := RegisteredGroup{ChatID: "c1", GroupFolder: "ops", IsMainGroup: true, RegisteredAt: time.Now()}
	require.NoError(t, s.RegisterGroup(g))

	got, ok, err := s.Group("c1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ops", got.GroupFolder)

	require.NoError(t, s.UnregisterGroup("c1"))
	_, ok, err = s.Group("c1")
	require.NoError(t, err)
	require.False(t, ok)
}
