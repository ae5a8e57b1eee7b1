package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxHeaderBytes bounds how much note content gets prepended ahead of a
// turn's user prompt, so one oversized notes file can't crowd out the
// planner's context budget.
const maxHeaderBytes = 6000

// NotesSource reads *.md files directly under Dir (non-recursive) and
// concatenates their front-matter-stripped bodies into a header. It does
// not index, rank, or search — every file under Dir is read every turn.
type NotesSource struct {
	Dir string
}

// NewNotesSource builds a Source rooted at dir.
func NewNotesSource(dir string) *NotesSource {
	return &NotesSource{Dir: dir}
}

// BuildHeader ignores groupFolder and prompt; every registered chat shares
// the same flat notes directory per the spec's non-indexing scope. Returns
// an empty header, not an error, when the directory does not exist or
// holds no markdown files.
func (n *NotesSource) BuildHeader(ctx context.Context, groupFolder, prompt string) (string, error) {
	entries, err := os.ReadDir(n.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read notes dir %s: %w", n.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		body, err := n.readBody(filepath.Join(n.Dir, name))
		if err != nil {
			return "", err
		}
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n%s", strings.TrimSuffix(name, ".md"), body))
	}
	if len(parts) == 0 {
		return "", nil
	}

	header := strings.Join(parts, "\n\n")
	if len(header) > maxHeaderBytes {
		header = header[:maxHeaderBytes]
	}
	return header, nil
}

func (n *NotesSource) readBody(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read note %s: %w", path, err)
	}
	_, body, err := stripFrontmatter(content)
	if err != nil {
		return "", fmt.Errorf("note %s: %w", path, err)
	}
	return string(body), nil
}
