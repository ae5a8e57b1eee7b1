package cmd

import (
	"fmt"

	"github.com/nanoclaw-ops/nanoclaw/pkg/debugcli"
	"github.com/nanoclaw-ops/nanoclaw/pkg/param"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"github.com/spf13/cobra"
)

// DebugCmd opens the interactive console over the proposal journal, run
// registry, and scheduled-task table, without going through chat.
func DebugCmd() *cobra.Command {
	debugCmd := &cobra.Command{
		Use:   "debug",
		Short: "Interactive console for inspecting proposals, runs, and scheduled tasks",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// always init without aws: the debug console is a local
			// operator tool, never run against SSM.
			if err := param.Init(nil); err != nil {
				return fmt.Errorf("init params: %w", err)
			}
			if err := persistence.InitPostgres(persistence.PostgresOpts{URI: param.Get().PGURI}); err != nil {
				return fmt.Errorf("init postgres: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return debugcli.RunConsole(param.Get().DataDir)
		},
	}

	return debugCmd
}
