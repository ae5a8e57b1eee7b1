package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/param"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/nanoclaw-ops/nanoclaw/pkg/scheduler"
	"github.com/nanoclaw-ops/nanoclaw/pkg/statefile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BootstrapCmd creates DATA_DIR's flat-file layout and the Postgres tables
// the run registry and scheduler need, so a fresh deployment has somewhere
// to write before "core run" or "core runner" starts.
func BootstrapCmd() *cobra.Command {
	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create DATA_DIR's layout and the Postgres schema",
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
			if err := runBootstrap(cmd.Context()); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			return nil
		},
	}

	return bootstrapCmd
}

func runBootstrap(ctx context.Context) error {
	p := param.Get()

	if err := statefile.EnsureDir(p.DataDir); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	state := corestate.New(p.DataDir)
	if _, err := state.RouterState(); err != nil {
		return fmt.Errorf("touch router state: %w", err)
	}
	if _, err := state.RegisteredGroups(); err != nil {
		return fmt.Errorf("touch registered groups: %w", err)
	}
	if _, _, err := state.Session(""); err != nil {
		return fmt.Errorf("touch sessions: %w", err)
	}

	proposals := proposal.NewStore(p.DataDir)
	if _, err := proposals.ListAll(); err != nil {
		return fmt.Errorf("touch proposal journal: %w", err)
	}

	if err := persistence.InitPostgres(persistence.PostgresOpts{URI: p.PGURI}); err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	if err := runregistry.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	if err := scheduler.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure scheduled_tasks schema: %w", err)
	}

	logger.Info("bootstrap complete", zap.String("dataDir", p.DataDir))
	return nil
}
