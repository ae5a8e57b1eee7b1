package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/param"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runner"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runner/actions"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// RunnerCmd starts the HTTP service that accepts signed dispatches from the
// core and executes each action.
func RunnerCmd() *cobra.Command {
	runnerCmd := &cobra.Command{
		Use:   "runner",
		Short: "Run the action execution HTTP service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}

			sess, err := session.NewSession(aws.NewConfig().WithCredentialsChainVerboseErrors(true))
			if err != nil {
				fmt.Printf("failed to create aws session: %v\n", err)
			}
			if err := param.Init(sess); err != nil {
				return fmt.Errorf("init params: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunner(cmd.Context())
		},
	}

	return runnerCmd
}

func runRunner(ctx context.Context) error {
	p := param.Get()

	if err := persistence.InitPostgres(persistence.PostgresOpts{URI: p.PGURI}); err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	if err := runregistry.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}

	sshHosts, err := buildSSHHosts(p)
	if err != nil {
		return fmt.Errorf("build ssh hosts: %w", err)
	}

	runs := runregistry.NewStore()
	if n, err := runs.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile orphaned runs: %w", err)
	} else if n > 0 {
		logger.Info("reconciled orphaned runs at startup", zap.Int("count", n))
	}

	svc := runner.NewService(runner.Config{
		Port:             p.RunnerPort,
		DispatchSecret:   p.DispatchSecret,
		RunnerSecret:     p.RunnerSecret,
		MaxParallel:      p.MaxParallel,
		SSHHosts:         sshHosts,
		MediaForward:     actions.MediaForwardConfig{Endpoint: p.MediaForwardEndpoint, BearerToken: p.MediaForwardToken},
		Opencode:         actions.OpencodeConfig{Endpoint: p.OpencodeEndpoint},
	}, runs)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", p.RunnerPort),
		Handler: svc.NewEngine(),
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("runner listening", zap.Int("port", p.RunnerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("runner server: %w", err)
		}
	}()

	select {
	case <-sigs:
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildSSHHosts(p param.Params) (actions.SSHHosts, error) {
	hosts := actions.SSHHosts{}

	if p.SSHWilliamKeyPath != "" {
		cfg, err := loadSSHHost(p.SSHWilliamAddr, p.SSHWilliamUser, p.SSHWilliamKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load william ssh config: %w", err)
		}
		hosts["william"] = cfg
	}
	if p.SSHWillyUbuntuKeyPath != "" {
		cfg, err := loadSSHHost(p.SSHWillyUbuntuAddr, p.SSHWillyUbuntuUser, p.SSHWillyUbuntuKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load willy-ubuntu ssh config: %w", err)
		}
		hosts["willy-ubuntu"] = cfg
	}

	return hosts, nil
}

func loadSSHHost(addr, user, keyPath string) (actions.SSHHostConfig, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return actions.SSHHostConfig{}, fmt.Errorf("read private key %s: %w", keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return actions.SSHHostConfig{}, fmt.Errorf("parse private key %s: %w", keyPath, err)
	}
	return actions.SSHHostConfig{Addr: addr, User: user, Signer: signer}, nil
}
