// Package approval owns the proposal state machine's user-visible surface:
// text commands, inline-button callbacks, and result rendering. It never
// executes anything itself — on approval it hands actions to the
// dispatcher and posts back whatever the dispatcher reports.
package approval

import (
	"strings"
)

// CommandKind is the parsed shape of a text command or button payload.
type CommandKind string

const (
	CommandList   CommandKind = "list"
	CommandApprove CommandKind = "approve"
	CommandDeny    CommandKind = "deny"
	CommandReasonPrompt CommandKind = "reason_prompt"
	CommandNone    CommandKind = "none"
)

// Command is a parsed /approvals, /approve, /deny, or inline-button
// instruction.
type Command struct {
	Kind   CommandKind
	ID     string
	Reason string
}

const maxListed = 5

// MaxListedProposals is the cap on how many pending proposals /approvals
// shows for one chat.
const MaxListedProposals = maxListed

// ParseTextCommand recognizes "/approvals", "/approve <id>", and
// "/deny <id> [reason]". Anything else parses as CommandNone.
func ParseTextCommand(text string) Command {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "/approvals":
		return Command{Kind: CommandList}

	case strings.HasPrefix(trimmed, "/approve "):
		id := strings.TrimSpace(strings.TrimPrefix(trimmed, "/approve "))
		if id == "" {
			return Command{Kind: CommandNone}
		}
		return Command{Kind: CommandApprove, ID: id}

	case strings.HasPrefix(trimmed, "/deny "):
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "/deny "))
		if rest == "" {
			return Command{Kind: CommandNone}
		}
		parts := strings.SplitN(rest, " ", 2)
		cmd := Command{Kind: CommandDeny, ID: parts[0]}
		if len(parts) == 2 {
			cmd.Reason = strings.TrimSpace(parts[1])
		}
		return cmd

	default:
		return Command{Kind: CommandNone}
	}
}

// ParseCallback recognizes inline-button payloads: "approve:<id>",
// "deny:<id>", "reason:<id>".
func ParseCallback(payload string) Command {
	switch {
	case strings.HasPrefix(payload, "approve:"):
		return Command{Kind: CommandApprove, ID: strings.TrimPrefix(payload, "approve:")}
	case strings.HasPrefix(payload, "deny:"):
		return Command{Kind: CommandDeny, ID: strings.TrimPrefix(payload, "deny:")}
	case strings.HasPrefix(payload, "reason:"):
		return Command{Kind: CommandReasonPrompt, ID: strings.TrimPrefix(payload, "reason:")}
	default:
		return Command{Kind: CommandNone}
	}
}
