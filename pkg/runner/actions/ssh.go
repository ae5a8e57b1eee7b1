// Package actions implements one executor per action kind, called by the
// runner's dispatch handler after signature verification and ordering.
package actions

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHHostConfig is the reachable address and credentials for one of the
// closed set of named ssh targets.
type SSHHostConfig struct {
	Addr              string // host:port
	User              string
	Signer            ssh.Signer
	StrictHostKeyCheck bool
	HostKey           ssh.PublicKey // required when StrictHostKeyCheck is true
}

// SSHHosts maps the closed set {william, willy-ubuntu} to their configured
// reachable address; populated at bootstrap from environment/SSM config.
type SSHHosts map[string]SSHHostConfig

const (
	maxStdoutBytes = 100_000
	maxStderrBytes = 10_000

	defaultConnectTimeout = 10 * time.Second
	defaultWallClock      = 60 * time.Second
	keepaliveInterval     = 15 * time.Second
)

// SSHResult is the outcome of one remote command invocation.
type SSHResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	DurationMS int64
}

// RunSSH opens a fresh batch-mode, no-pty, no-stdin session to target,
// runs command, and enforces a wall-clock timeout by closing the session
// (SSH's equivalent of terminate-then-kill: the remote process loses its
// channel and the server reaps it).
func RunSSH(ctx context.Context, host SSHHostConfig, command string, wallClock time.Duration) (SSHResult, error) {
	if wallClock <= 0 {
		wallClock = defaultWallClock
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if host.StrictHostKeyCheck {
		if host.HostKey == nil {
			return SSHResult{}, fmt.Errorf("strict host key checking enabled but no host key configured")
		}
		hostKeyCallback = ssh.FixedHostKey(host.HostKey)
	}

	clientConfig := &ssh.ClientConfig{
		User:            host.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(host.Signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         defaultConnectTimeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := dialSSHContext(dialCtx, host.Addr, clientConfig)
	if err != nil {
		return SSHResult{}, fmt.Errorf("ssh dial %s: %w", host.Addr, err)
	}
	defer client.Close()

	go keepalive(client, keepaliveInterval)

	session, err := client.NewSession()
	if err != nil {
		return SSHResult{}, fmt.Errorf("ssh new session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-time.After(wallClock):
		session.Close() // terminate; client teardown below is the kill
		runErr = fmt.Errorf("ssh command exceeded wall-clock timeout of %s", wallClock)
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			exitCode = 1
		}
	}

	return SSHResult{
		Stdout:     truncateTail(stdout.String(), maxStdoutBytes),
		Stderr:     truncateTail(stderr.String(), maxStderrBytes),
		ExitCode:   exitCode,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// truncateTail keeps the last n bytes of s, matching the spec's
// truncated-from-the-tail behavior (the most recent output is the most
// useful when a command is chatty).
func truncateTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func keepalive(client *ssh.Client, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		if _, _, err := client.SendRequest("keepalive@nanoclaw", true, nil); err != nil {
			return
		}
	}
}

// dialSSHContext dials with ssh.Dial but honors ctx cancellation/timeout by
// racing the blocking dial against ctx.Done.
func dialSSHContext(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	type result struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, cfg)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		return r.client, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
