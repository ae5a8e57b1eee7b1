package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nanoclaw-ops/nanoclaw/pkg/param"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/nanoclaw-ops/nanoclaw/pkg/scheduler"
	"github.com/nanoclaw-ops/nanoclaw/pkg/testhelpers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// IntegrationCmd spins up a disposable Postgres container and runs every
// IntegrationTest_* function against it, in place of a live database.
func IntegrationCmd() *cobra.Command {
	integrationCmd := &cobra.Command{
		Use:   "integration",
		Short: "Run integration tests against a throwaway Postgres container",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}

			// always init without aws: integration tests read from the
			// environment, never from SSM.
			if err := param.Init(nil); err != nil {
				return fmt.Errorf("init params: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runIntegrationTests(ctx); err != nil {
				return fmt.Errorf("run integration tests: %w", err)
			}
			return nil
		},
	}

	return integrationCmd
}

func runIntegrationTests(ctx context.Context) error {
	pgTestContainer, err := testhelpers.CreatePostgresContainer(ctx)
	if err != nil {
		return fmt.Errorf("create postgres container: %w", err)
	}
	defer pgTestContainer.Terminate(ctx)

	if err := persistence.InitPostgres(persistence.PostgresOpts{
		URI: pgTestContainer.ConnectionString,
	}); err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	if err := runregistry.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	if err := scheduler.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure scheduled_tasks schema: %w", err)
	}

	if err := runregistry.IntegrationTest_RunLifecycle(); err != nil {
		return fmt.Errorf("run lifecycle: %w", err)
	}

	dataDir, err := os.MkdirTemp("", "nanoclaw-integration-*")
	if err != nil {
		return fmt.Errorf("create temp data dir: %w", err)
	}
	defer os.RemoveAll(dataDir)

	if err := scheduler.IntegrationTest_ScheduleLifecycle(dataDir); err != nil {
		return fmt.Errorf("schedule lifecycle: %w", err)
	}

	return nil
}
