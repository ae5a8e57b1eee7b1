package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckSSHCommandAllowsKnownReadonly(t *testing.T) {
	for _, cmd := range []string{
		"uptime",
		"whoami",
		"hostname",
		"ping -c 4 10.0.0.1",
		"ls /var/log",
		"uname -a",
		"docker stats --no-stream",
		"systemctl status nginx",
		"journalctl -u nginx",
	} {
		require.NoError(t, CheckSSHCommand(cmd), cmd)
	}
}

func TestCheckSSHCommandBlocksMetacharacters(t *testing.T) {
	for _, cmd := range []string{
		"uptime; rm -rf /",
		"uptime && whoami",
		"uptime | mail me",
		"uptime `whoami`",
		"uptime $(whoami)",
	} {
		require.Error(t, CheckSSHCommand(cmd), cmd)
	}
}

func TestCheckSSHCommandBlocksUnlistedCommand(t *testing.T) {
	require.Error(t, CheckSSHCommand("rm -rf /tmp/x"))
	require.Error(t, CheckSSHCommand("cat /etc/passwd"))
}

func TestCheckSSHCommandBlocksRelativeLsPath(t *testing.T) {
	require.Error(t, CheckSSHCommand("ls ../etc"))
}
