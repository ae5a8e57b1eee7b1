package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripFrontmatterSplitsYAMLAndBody(t *testing.T) {
	content := []byte("---\nkey: value\n---\nbody text here")
	fm, body, err := stripFrontmatter(content)
	require.NoError(t, err)
	require.Equal(t, "value", fm["key"])
	require.Equal(t, "body text here", string(body))
}

func TestStripFrontmatterNoDelimiterReturnsWholeAsBody(t *testing.T) {
	content := []byte("just plain text, no frontmatter")
	fm, body, err := stripFrontmatter(content)
	require.NoError(t, err)
	require.Nil(t, fm)
	require.Equal(t, string(content), string(body))
}

func TestStripFrontmatterUnterminatedBlockReturnsWholeAsBody(t *testing.T) {
	content := []byte("---\nkey: value\nno closing delimiter")
	fm, body, err := stripFrontmatter(content)
	require.NoError(t, err)
	require.Nil(t, fm)
	require.Equal(t, string(content), string(body))
}
