package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChunkByLinesNoopWhenUnderLimit(t *testing.T) {
	chunks := chunkByLines("short message", 100)
	require.Equal(t, []string{"short message"}, chunks)
}

func TestChunkByLinesSplitsAtLineBoundaries(t *testing.T) {
	text := strings.Repeat("line\n", 20)
	chunks := chunkByLines(text, 30)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 30+len("line"))
	}
}

func TestParseSlackTimestamp(t *testing.T) {
	ts, err := parseSlackTimestamp("1700000000.000100")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), ts.Unix())
}

func TestSortByTimestampAscending(t *testing.T) {
	now := time.Now()
	messages := []InboundMessage{
		{Text: "c", Timestamp: now.Add(2 * time.Second)},
		{Text: "a", Timestamp: now},
		{Text: "b", Timestamp: now.Add(time.Second)},
	}
	sortByTimestamp(messages)
	require.Equal(t, []string{"a", "b", "c"}, []string{messages[0].Text, messages[1].Text, messages[2].Text})
}
