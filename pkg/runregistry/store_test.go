package runregistry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndClearAbortHandle(t *testing.T) {
	s := NewStore()
	called := false
	s.RegisterAbort("run-1", func() { called = true })

	s.mu.Lock()
	_, ok := s.aborts["run-1"]
	s.mu.Unlock()
	require.True(t, ok)

	s.ClearAbort("run-1")

	s.mu.Lock()
	_, ok = s.aborts["run-1"]
	s.mu.Unlock()
	require.False(t, ok)
	require.False(t, called, "clearing must not itself invoke the abort func")
}
