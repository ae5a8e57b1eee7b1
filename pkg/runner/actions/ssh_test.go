package actions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateTailKeepsMostRecentOutput(t *testing.T) {
	s := strings.Repeat("a", 5) + strings.Repeat("b", 5)
	got := truncateTail(s, 5)
	require.Equal(t, "bbbbb", got)
}

func TestTruncateTailNoopWhenUnderLimit(t *testing.T) {
	require.Equal(t, "short", truncateTail("short", 100))
}
