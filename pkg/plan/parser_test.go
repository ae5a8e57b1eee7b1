package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFencedBlock(t *testing.T) {
	text := "Sure, here's the plan:\n```json\n{\"actions\":[{\"type\":\"reply\",\"reason\":\"ack\"}]}\n```\nlet me know"
	res := Parse(text)
	require.Empty(t, res.Errors)
	require.Len(t, res.Plan.Actions, 1)
	require.Equal(t, ActionReply, res.Plan.Actions[0].Type)
}

func TestParseBareJSONWithLeadingLiteral(t *testing.T) {
	text := "json\n{\"actions\":[{\"type\":\"question\",\"question\":\"which host?\"}]}"
	res := Parse(text)
	require.Empty(t, res.Errors)
	require.Len(t, res.Plan.Actions, 1)
	require.Equal(t, ActionQuestion, res.Plan.Actions[0].Type)
}

func TestParseEmptyObjectIsEmptyPlan(t *testing.T) {
	res := Parse("```json\n{}\n```")
	require.Empty(t, res.Errors)
	require.Empty(t, res.Plan.Actions)
}

func TestParseUnknownTypeRejectsWholePlan(t *testing.T) {
	text := "```json\n{\"actions\":[{\"type\":\"reply\"},{\"type\":\"launch_missiles\"}]}\n```"
	res := Parse(text)
	require.NotEmpty(t, res.Errors)
	require.Empty(t, res.Plan.Actions)
}

func TestParseInvalidActionRejectsWholePlan(t *testing.T) {
	text := "```json\n{\"actions\":[{\"type\":\"ssh\",\"target\":\"william\"}]}\n```"
	res := Parse(text)
	require.NotEmpty(t, res.Errors)
	require.Contains(t, res.Errors[0], "requires a command")
}

func TestParseNoFenceNoJSONIsError(t *testing.T) {
	res := Parse("just a plain chat reply, no plan here")
	require.NotEmpty(t, res.Errors)
}

func TestFormatPlanBlockRoundTrips(t *testing.T) {
	approve := true
	p := Plan{Actions: []Action{
		{Type: ActionSSH, Target: SSHTargetWilliam, Command: "uptime", Reason: "check load", RequiresApproval: &approve},
	}}

	block, err := FormatPlanBlock(p)
	require.NoError(t, err)

	res := Parse(block)
	require.Empty(t, res.Errors)
	require.Len(t, res.Plan.Actions, 1)
	require.Equal(t, "uptime", res.Plan.Actions[0].Command)
}

func TestStripPlanBlockRemovesFenceKeepsProse(t *testing.T) {
	text := "Here you go:\n```json\n{\"actions\":[]}\n```\nall set."
	got := StripPlanBlock(text)
	require.Equal(t, "Here you go:\n\nall set.", got)
}

func TestStripPlanBlockSuppressesBarePlanJSON(t *testing.T) {
	got := StripPlanBlock(`{"actions":[{"type":"reply"}]}`)
	require.Equal(t, "", got)
}

func TestStripPlanBlockKeepsOrdinaryReply(t *testing.T) {
	got := StripPlanBlock("just saying hello")
	require.Equal(t, "just saying hello", got)
}
