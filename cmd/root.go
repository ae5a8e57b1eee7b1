package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd builds the "core" command tree: run (the three cooperative
// loops), runner (the HTTP execution service), bootstrap (DATA_DIR
// layout), debug (the inspection REPL), and integration (Postgres-backed
// integration tests).
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "core",
		Short: "nanoclaw core: chat-driven operations orchestrator",
		Long:  `The chat-facing planning core: message loop, IPC watcher, and scheduler for a human-in-the-loop operations assistant.`,
	}

	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(RunnerCmd())
	rootCmd.AddCommand(BootstrapCmd())
	rootCmd.AddCommand(DebugCmd())
	rootCmd.AddCommand(IntegrationCmd())

	return rootCmd
}
