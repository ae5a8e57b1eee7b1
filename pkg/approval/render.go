package approval

import (
	"fmt"
	"strings"

	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
)

// RenderPendingList formats up to MaxListedProposals pending proposals for
// a /approvals reply.
func RenderPendingList(pending []proposal.Proposal) string {
	if len(pending) == 0 {
		return "No pending proposals."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d pending proposal(s):\n", len(pending)))
	for _, p := range pending {
		sb.WriteString(fmt.Sprintf("- %s (%d action(s)): %s\n", p.ID, len(p.Actions), summarizeActions(p.Actions)))
	}
	return sb.String()
}

func summarizeActions(actions []plan.Action) string {
	kinds := make([]string, 0, len(actions))
	for _, a := range actions {
		kinds = append(kinds, string(a.Type))
	}
	return strings.Join(kinds, ", ")
}

// RenderDecisionAck is the brief acknowledgment posted after a decision.
func RenderDecisionAck(res proposal.DecideResult, applied bool) string {
	if !applied {
		return fmt.Sprintf("proposal %s is already %s", res.Proposal.ID, res.AlreadyAt)
	}
	switch res.Proposal.Status {
	case proposal.StatusApproved:
		return fmt.Sprintf("proposal %s approved", res.Proposal.ID)
	case proposal.StatusDenied:
		return fmt.Sprintf("proposal %s denied", res.Proposal.ID)
	default:
		return fmt.Sprintf("proposal %s updated", res.Proposal.ID)
	}
}

// RenderResults renders one approved proposal's dispatch results,
// intent-aware: web_fetch actions get a dedicated block (the gateway has
// already routed their text through the planner for summarization before
// calling this); every other action kind gets a compact per-action block.
// actions and results are assumed positionally zipped, as the dispatcher
// guarantees.
func RenderResults(actions []plan.Action, results []dispatch.ActionResult) string {
	var sb strings.Builder
	for i, a := range actions {
		if i >= len(results) {
			break
		}
		r := results[i]
		switch a.Type {
		case plan.ActionWebFetch:
			sb.WriteString(renderWebFetchResult(a, r))
		default:
			sb.WriteString(renderCompactResult(a, r))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderWebFetchResult(a plan.Action, r dispatch.ActionResult) string {
	switch r.Status {
	case "blocked":
		return fmt.Sprintf("web_fetch %s: blocked (%s)", a.URL, r.Cause)
	case "failed":
		return fmt.Sprintf("web_fetch %s: failed (%s)", a.URL, r.Cause)
	default:
		return fmt.Sprintf("web_fetch %s:\n%s", a.URL, r.Stdout)
	}
}

func renderCompactResult(a plan.Action, r dispatch.ActionResult) string {
	switch r.Status {
	case "blocked":
		return fmt.Sprintf("%s: blocked (%s)", a.Type, r.Cause)
	case "failed":
		return fmt.Sprintf("%s: failed (%s)", a.Type, r.Cause)
	case "completed":
		if a.Type == plan.ActionOpencodeServe && r.RunID != "" {
			return fmt.Sprintf("%s: running in background as %s", a.Type, r.RunID)
		}
		out := r.Output
		if out == "" {
			out = r.Stdout
		}
		return fmt.Sprintf("%s: ok%s", a.Type, formatNonEmpty(out))
	default:
		return fmt.Sprintf("%s: %s", a.Type, r.Status)
	}
}

func formatNonEmpty(s string) string {
	if s == "" {
		return ""
	}
	return " — " + s
}

// Chunk splits text at line boundaries into pieces no larger than maxBytes.
func Chunk(text string, maxBytes int) []string {
	if len(text) <= maxBytes {
		return []string{text}
	}
	lines := strings.Split(text, "\n")
	var chunks []string
	var cur strings.Builder
	for _, line := range lines {
		if cur.Len()+len(line)+1 > maxBytes && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
