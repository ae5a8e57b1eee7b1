package approval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTextCommandApprovals(t *testing.T) {
	cmd := ParseTextCommand("/approvals")
	require.Equal(t, CommandList, cmd.Kind)
}

func TestParseTextCommandApprove(t *testing.T) {
	cmd := ParseTextCommand("/approve abc-123")
	require.Equal(t, CommandApprove, cmd.Kind)
	require.Equal(t, "abc-123", cmd.ID)
}

func TestParseTextCommandDenyWithReason(t *testing.T) {
	cmd := ParseTextCommand("/deny abc-123 too risky for prod")
	require.Equal(t, CommandDeny, cmd.Kind)
	require.Equal(t, "abc-123", cmd.ID)
	require.Equal(t, "too risky for prod", cmd.Reason)
}

func TestParseTextCommandDenyNoReason(t *testing.T) {
	cmd := ParseTextCommand("/deny abc-123")
	require.Equal(t, CommandDeny, cmd.Kind)
	require.Equal(t, "abc-123", cmd.ID)
	require.Equal(t, "", cmd.Reason)
}

func TestParseTextCommandUnrecognizedIsNone(t *testing.T) {
	require.Equal(t, CommandNone, ParseTextCommand("just chatting").Kind)
}

func TestParseCallbackApprove(t *testing.T) {
	cmd := ParseCallback("approve:xyz")
	require.Equal(t, CommandApprove, cmd.Kind)
	require.Equal(t, "xyz", cmd.ID)
}

func TestParseCallbackDeny(t *testing.T) {
	cmd := ParseCallback("deny:xyz")
	require.Equal(t, CommandDeny, cmd.Kind)
}

func TestParseCallbackReasonPrompt(t *testing.T) {
	cmd := ParseCallback("reason:xyz")
	require.Equal(t, CommandReasonPrompt, cmd.Kind)
}
