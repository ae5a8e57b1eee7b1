package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fenceRE matches the first triple-backtick fenced block, with an optional
// "json" language tag, non-greedy so embedded backticks in prose don't
// swallow the rest of the message.
var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ParseResult is the outcome of parsing one planner turn's free text.
type ParseResult struct {
	Plan    Plan
	Errors  []string
	RawJSON string
}

// rawPlan mirrors Plan but with loosely-typed actions so we can validate
// each element individually and report one error per bad element instead of
// failing the whole decode on the first mismatch.
type rawPlan struct {
	Actions []json.RawMessage `json:"actions"`
}

// Parse turns planner free text into a plan, following the resolution order
// from the plan contract:
//  1. extract the first fenced block and parse it as JSON
//  2. if there is no fence, strip a leading "json" literal and parse the
//     whole trimmed text
//  3. `{}` with no actions is a valid empty-actions plan
//  4. anything else is a parse error
func Parse(text string) ParseResult {
	if m := fenceRE.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		return parseJSONBody(body)
	}

	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimSpace(body)

	if body == "" {
		return ParseResult{Errors: []string{"no fenced plan block and no JSON body found"}}
	}

	return parseJSONBody(body)
}

func parseJSONBody(body string) ParseResult {
	var raw rawPlan
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		// A bare `{}` (no actions key at all) is still valid JSON and would
		// have decoded above; an actual syntax/type error lands here.
		return ParseResult{
			Errors:  []string{fmt.Sprintf("invalid plan JSON: %v", err)},
			RawJSON: body,
		}
	}

	p := Plan{Actions: make([]Action, 0, len(raw.Actions))}
	var errs []string

	for i, rm := range raw.Actions {
		var discriminator struct {
			Type ActionType `json:"type"`
		}
		if err := json.Unmarshal(rm, &discriminator); err != nil {
			errs = append(errs, fmt.Sprintf("action %d: invalid JSON: %v", i, err))
			continue
		}
		if !IsKnownType(discriminator.Type) {
			errs = append(errs, fmt.Sprintf("action %d: unknown type %q", i, discriminator.Type))
			continue
		}

		var a Action
		if err := json.Unmarshal(rm, &a); err != nil {
			errs = append(errs, fmt.Sprintf("action %d: %v", i, err))
			continue
		}

		if err := Validate(&a); err != nil {
			errs = append(errs, fmt.Sprintf("action %d: %v", i, err))
			continue
		}

		p.Actions = append(p.Actions, a)
	}

	if len(errs) > 0 {
		// Schema validation failure on any element rejects the whole plan,
		// per §4.1: "Unknown type -> reject the whole plan."
		return ParseResult{Errors: errs, RawJSON: body}
	}

	return ParseResult{Plan: p, RawJSON: body}
}

// FormatPlanBlock renders a canonical fenced plan block: triple backtick,
// "json" tag, pretty-printed JSON, closing fence. The parser's fenceRE is
// built to round-trip this exact shape.
func FormatPlanBlock(p Plan) (string, error) {
	actions := p.Actions
	if actions == nil {
		actions = []Action{}
	}
	b, err := json.MarshalIndent(Plan{Actions: actions}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	return "```json\n" + string(b) + "\n```", nil
}

// planShapeRE recognizes text that is entirely a plan-shaped JSON object
// (used by StripPlanBlock's belt-and-suspenders suppression).
var planShapeRE = regexp.MustCompile(`(?s)^\s*\{\s*"actions"\s*:.*\}\s*$`)

// StripPlanBlock removes the fenced plan block from chat-bound reply text.
// If everything remaining still looks like a bare plan-shaped JSON object,
// it is suppressed too, so a planner that forgets the fence never leaks raw
// JSON into the chat.
func StripPlanBlock(text string) string {
	stripped := fenceRE.ReplaceAllString(text, "")
	stripped = strings.TrimSpace(stripped)

	if stripped == "" {
		return ""
	}
	if planShapeRE.MatchString(stripped) {
		return ""
	}
	var probe rawPlan
	if json.Unmarshal([]byte(stripped), &probe) == nil && probe.Actions != nil {
		return ""
	}
	return stripped
}
