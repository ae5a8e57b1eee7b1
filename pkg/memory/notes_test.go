package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildHeaderConcatenatesMarkdownFilesSorted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-ops.md"), []byte("second note"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-ops.md"), []byte("first note"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not markdown"), 0644))

	src := NewNotesSource(dir)
	header, err := src.BuildHeader(context.Background(), "grp", "hello")
	require.NoError(t, err)

	require.Less(t, indexOf(header, "first note"), indexOf(header, "second note"))
	require.NotContains(t, header, "not markdown")
}

func TestBuildHeaderStripsFrontmatter(t *testing.T) {
	dir := t.TempDir()
	content := "---\ntitle: Runbook\n---\nrestart the service with systemctl"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runbook.md"), []byte(content), 0644))

	src := NewNotesSource(dir)
	header, err := src.BuildHeader(context.Background(), "grp", "hello")
	require.NoError(t, err)

	require.Contains(t, header, "restart the service with systemctl")
	require.NotContains(t, header, "title: Runbook")
}

func TestBuildHeaderEmptyWhenDirMissing(t *testing.T) {
	src := NewNotesSource(filepath.Join(t.TempDir(), "does-not-exist"))
	header, err := src.BuildHeader(context.Background(), "grp", "hello")
	require.NoError(t, err)
	require.Empty(t, header)
}

func TestBuildHeaderTruncatesOversizedHeader(t *testing.T) {
	dir := t.TempDir()
	long := make([]byte, maxHeaderBytes*2)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huge.md"), long, 0644))

	src := NewNotesSource(dir)
	header, err := src.BuildHeader(context.Background(), "grp", "hello")
	require.NoError(t, err)
	require.LessOrEqual(t, len(header), maxHeaderBytes)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
