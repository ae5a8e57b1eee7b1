package plan

import "fmt"

// RepairSystemPrompt is appended to the planner's context when a turn's
// reply failed to parse as a plan. It is deliberately rigid: the planner
// gets exactly one more try, and that try must be JSON-only, no prose.
const RepairSystemPrompt = `Your previous reply could not be parsed as a plan.
Reply again with ONLY a single fenced JSON code block, no other text, matching:

` + "```json" + `
{
  "actions": [
    {"type": "reply", "reason": "..."},
    {"type": "question", "question": "...", "reason": "..."},
    {"type": "ssh", "target": "william|willy-ubuntu", "command": "...", "reason": "...", "requiresApproval": true},
    {"type": "obsidian_write", "path": "...", "patch": "...", "reason": "..."},
    {"type": "web_fetch", "url": "https://...", "mode": "http|browser", "extract": "...", "reason": "..."},
    {"type": "image_to_text", "imageUrl": "https://...", "prompt": "...", "reason": "..."},
    {"type": "voice_to_text", "audioUrl": "https://...", "language": "...", "reason": "..."},
    {"type": "opencode_serve", "task": "...", "cwd": "...", "timeout": 120, "executionMode": "foreground|background", "reason": "..."},
    {"type": "addon_install", "name": "...", "reason": "..."},
    {"type": "addon_create", "name": "...", "purpose": "...", "reason": "..."},
    {"type": "addon_run", "name": "...", "input": "...", "reason": "..."}
  ]
}
` + "```" + `

An empty "actions" array is valid if there is nothing to do beyond the reply
already given. Every action except "reply" requires a "reason". Do not invent
a type outside this list.`

// RepairPrompt renders a one-shot repair instruction naming the specific
// parse failures so the planner can see what it got wrong, not just that it
// was wrong.
func RepairPrompt(causes []string) string {
	msg := RepairSystemPrompt
	if len(causes) == 0 {
		return msg
	}
	msg += "\n\nSpecific problems with your last reply:\n"
	for _, c := range causes {
		msg += fmt.Sprintf("- %s\n", c)
	}
	return msg
}
