package dispatch

import (
	"context"
	"testing"

	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/stretchr/testify/require"
)

func TestPreflightBlocksDisallowedSSHCommand(t *testing.T) {
	cause := preflight(plan.Action{Type: plan.ActionSSH, Target: plan.SSHTargetWilliam, Command: "rm -rf /"})
	require.NotEmpty(t, cause)
}

func TestPreflightBlocksSSRFWebFetch(t *testing.T) {
	cause := preflight(plan.Action{Type: plan.ActionWebFetch, URL: "http://169.254.169.254/latest/meta-data"})
	require.NotEmpty(t, cause)
}

func TestPreflightAllowsCleanSSH(t *testing.T) {
	cause := preflight(plan.Action{Type: plan.ActionSSH, Target: plan.SSHTargetWilliam, Command: "uptime"})
	require.Empty(t, cause)
}

func TestSendRefusesWhenLocalExecutionEnabled(t *testing.T) {
	c := New(Config{RunnerURL: "http://runner.invalid", Secret: "s", EnableLocalApprovedExecution: true})
	_, err := c.Send(nil, []plan.Action{{Type: plan.ActionReply}})
	require.Error(t, err)
}

func TestSendSkipsEveryActionWhenApprovedExecutionDisabled(t *testing.T) {
	c := New(Config{RunnerURL: "http://runner.invalid", Secret: "s"})
	results, err := c.Send(context.Background(), []plan.Action{
		{Type: plan.ActionSSH, Target: plan.SSHTargetWilliam, Command: "uptime"},
		{Type: plan.ActionReply},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, "skipped", r.Status)
	}
}
