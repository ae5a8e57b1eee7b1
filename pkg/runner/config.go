// Package runner is the HTTP service that accepts signed dispatches and
// executes each action: remote shell, outbound web fetch, media-forward
// endpoints, and opencode_serve tasks in foreground or background mode.
package runner

import (
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/runner/actions"
)

// Config is everything the runner needs to execute actions and authenticate
// callers.
type Config struct {
	Port              int
	DispatchSecret    string
	RunnerSecret      string
	MaxParallel       int
	SSHWallClock      time.Duration
	HTTPFetchTimeout  time.Duration
	OpencodeTimeout   time.Duration
	MediaForwardTimeout time.Duration

	SSHHosts       actions.SSHHosts
	MediaForward   actions.MediaForwardConfig
	Opencode       actions.OpencodeConfig
}

func (c Config) maxParallel() int {
	if c.MaxParallel <= 0 {
		return 4
	}
	return c.MaxParallel
}

func (c Config) sshWallClock() time.Duration {
	if c.SSHWallClock <= 0 {
		return 60 * time.Second
	}
	return c.SSHWallClock
}

func (c Config) httpFetchTimeout() time.Duration {
	if c.HTTPFetchTimeout <= 0 {
		return 20 * time.Second
	}
	return c.HTTPFetchTimeout
}

func (c Config) opencodeTimeout() time.Duration {
	if c.OpencodeTimeout <= 0 {
		return 10 * time.Minute
	}
	return c.OpencodeTimeout
}

func (c Config) mediaForwardTimeout() time.Duration {
	if c.MediaForwardTimeout <= 0 {
		return 30 * time.Second
	}
	return c.MediaForwardTimeout
}
