// Package memory is the external memory-retrieval collaborator: the message
// loop calls it once per turn to build a short context header that gets
// prepended ahead of the user's prompt before the planner sees it.
package memory

import "context"

// Source is the interface the message loop invokes. The concrete
// implementation in this package reads flat notes files from disk; the
// spec explicitly scopes indexing heuristics out, so there is no ranking
// or relevance scoring here, just concatenation.
type Source interface {
	BuildHeader(ctx context.Context, groupFolder, prompt string) (string, error)
}
