// Package planner is the external planner collaborator: the core invokes
// it once per chat turn to turn a user prompt into planner reply text,
// which pkg/plan then parses into a structured plan.
package planner

import "context"

// TurnRequest is one planner invocation: the user's concatenated prompt for
// this turn, a memory header prepended ahead of it, and whether this is a
// fresh turn or a JSON-repair retry.
type TurnRequest struct {
	SystemPrompt string
	MemoryHeader string
	UserPrompt   string
	IsRepair     bool
}

// TurnResponse is the planner's raw reply text for the turn; pkg/plan.Parse
// extracts the fenced plan block from it.
type TurnResponse struct {
	Text string
}

// Planner is the interface the message loop and scheduler invoke. The
// concrete implementations in this package select a backend (Anthropic,
// Groq, Ollama) by whichever API key is configured, mirroring an
// auto-detection policy already used elsewhere in this stack.
type Planner interface {
	Complete(ctx context.Context, req TurnRequest) (TurnResponse, error)
}
