package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInjectWebFetchAddsActionForBareURL(t *testing.T) {
	p := Plan{Actions: []Action{{Type: ActionReply, Reason: "ack"}}}
	out := InjectWebFetch("check this out https://example.com/post/1", p)

	require.Len(t, out.Actions, 2)
	require.Equal(t, ActionWebFetch, out.Actions[1].Type)
	require.Equal(t, WebFetchModeHTTP, out.Actions[1].Mode)
}

func TestInjectWebFetchSkipsWhenAlreadyPresent(t *testing.T) {
	p := Plan{Actions: []Action{{Type: ActionWebFetch, URL: "https://example.com", Reason: "r"}}}
	out := InjectWebFetch("https://other.com", p)
	require.Len(t, out.Actions, 1)
	require.Equal(t, "https://example.com", out.Actions[0].URL)
}

func TestInjectWebFetchNoURLLeavesPlanUnchanged(t *testing.T) {
	p := Plan{Actions: []Action{{Type: ActionReply, Reason: "ack"}}}
	out := InjectWebFetch("no links here", p)
	require.Len(t, out.Actions, 1)
}

func TestInjectWebFetchDynamicDomainUsesBrowserMode(t *testing.T) {
	p := Plan{}
	out := InjectWebFetch("look at https://x.com/someuser/status/1", p)
	require.Len(t, out.Actions, 1)
	require.Equal(t, WebFetchModeBrowser, out.Actions[0].Mode)
	require.True(t, out.Actions[0].Approval())
}
