package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/nanoclaw-ops/nanoclaw/pkg/approval"
	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/ipcwatcher"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/memory"
	"github.com/nanoclaw-ops/nanoclaw/pkg/messageloop"
	"github.com/nanoclaw-ops/nanoclaw/pkg/param"
	"github.com/nanoclaw-ops/nanoclaw/pkg/persistence"
	"github.com/nanoclaw-ops/nanoclaw/pkg/planner"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/nanoclaw-ops/nanoclaw/pkg/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RunCmd starts the three cooperative loops: the message loop, the IPC
// watcher, and the scheduler. Each ticks independently; a failing tick is
// logged and retried next period rather than crashing the process.
func RunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the message loop, IPC watcher, and scheduler",
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
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

			if err := runCore(ctx); err != nil {
				return fmt.Errorf("run core: %w", err)
			}

			<-sigs
			cancel()
			return nil
		},
	}

	return runCmd
}

func runCore(ctx context.Context) error {
	p := param.Get()

	if err := persistence.InitPostgres(persistence.PostgresOpts{URI: p.PGURI}); err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	if err := runregistry.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure runs schema: %w", err)
	}
	if err := scheduler.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure scheduled_tasks schema: %w", err)
	}

	tz, err := time.LoadLocation(p.SchedulerTimezone)
	if err != nil {
		return fmt.Errorf("load scheduler timezone %q: %w", p.SchedulerTimezone, err)
	}

	state := corestate.New(p.DataDir)
	proposals := proposal.NewStore(p.DataDir)
	chatClient := chat.NewSlackChat(p.SlackBotToken)
	memorySource := memory.NewNotesSource(p.NotesDir)

	plannerBackend, err := planner.Build(planner.Config{
		AnthropicAPIKey: p.AnthropicAPIKey,
		AnthropicModel:  p.CompletionModel,
		GroqAPIKey:      p.GroqAPIKey,
		GroqModel:       p.GroqModel,
		OllamaBaseURL:   p.OllamaBaseURL,
		OllamaModel:     p.OllamaModel,
	})
	if err != nil {
		return fmt.Errorf("build planner: %w", err)
	}

	dispatcher := dispatch.New(dispatch.Config{
		RunnerURL:                    p.RunnerURL,
		Secret:                       p.DispatchSecret,
		Timeout:                      p.DispatchTimeout,
		EnableLocalApprovedExecution: false,
		EnableApprovedExecution:      p.EnableApprovedExecution,
	})
	gateway := approval.NewGateway(proposals, dispatcher, chatClient, plannerBackend)

	tc := messageloop.TurnCollaborators{
		Chat:      chatClient,
		Planner:   plannerBackend,
		Memory:    memorySource,
		Proposals: proposals,
		State:     state,
	}

	msgLoop := messageloop.New(tc, gateway, p.TriggerPrefix)

	schedStore := scheduler.NewStore(state, tz)
	watcher := ipcwatcher.New(filepath.Join(p.DataDir, "ipc"), state, chatClient, schedStore)
	schedLoop := scheduler.New(schedStore, tc)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); msgLoop.Run(ctx) }()
	go func() { defer wg.Done(); watcher.Run(ctx) }()
	go func() { defer wg.Done(); schedLoop.Run(ctx) }()

	go func() {
		<-ctx.Done()
		wg.Wait()
		logger.Info("core loops stopped")
	}()

	logger.Info("core started", zap.String("dataDir", p.DataDir), zap.String("schedulerTimezone", p.SchedulerTimezone))
	return nil
}
