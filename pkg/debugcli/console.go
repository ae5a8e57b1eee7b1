// Package debugcli is an interactive console for inspecting and nudging
// core state (proposals, background runs, scheduled tasks) without going
// through chat. It never calls the planner or the dispatcher directly: it
// reads and mutates the same stores the live loops use.
package debugcli

import (
	"context"
	"fmt"
	"io"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"github.com/nanoclaw-ops/nanoclaw/pkg/runregistry"
	"github.com/nanoclaw-ops/nanoclaw/pkg/scheduler"
)

var (
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	boldBlue   = color.New(color.FgBlue, color.Bold).SprintFunc()
	dimText    = color.New(color.Faint).SprintFunc()
)

// Console is an interactive REPL over the proposal journal, run registry,
// and scheduled-task table. It assumes pkg/persistence has already been
// initialized by the caller.
type Console struct {
	ctx       context.Context
	proposals *proposal.Store
	runs      *runregistry.Store
	schedule  *scheduler.Store
	readline  *readline.Instance
}

// RunConsole opens the console against dataDir (the same directory the
// live loops use for their flat-file stores) and blocks until the user
// exits.
func RunConsole(dataDir string) error {
	console := &Console{
		ctx:       context.Background(),
		proposals: proposal.NewStore(dataDir),
		runs:      runregistry.NewStore(),
		schedule:  scheduler.NewStore(corestate.New(dataDir), time.UTC),
	}
	return console.run()
}

func (c *Console) run() error {
	fmt.Println(boldBlue("nanoclaw debug console"))
	fmt.Println(dimText("Type 'help' for available commands, 'exit' to quit"))
	fmt.Println()

	var historyFile string
	if usr, err := user.Current(); err == nil {
		historyFile = filepath.Join(usr.HomeDir, ".nanoclaw_debug_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 boldYellow("nanoclaw> "),
		HistoryFile:            historyFile,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		HistorySearchFold:      true,
		DisableAutoSaveHistory: false,
		HistoryLimit:           1000,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("help"),
			readline.PcItem("proposals"),
			readline.PcItem("proposal"),
			readline.PcItem("approve"),
			readline.PcItem("deny"),
			readline.PcItem("runs"),
			readline.PcItem("run"),
			readline.PcItem("cancel-run"),
			readline.PcItem("tasks"),
			readline.PcItem("pause-task"),
			readline.PcItem("resume-task"),
			readline.PcItem("cancel-task"),
			readline.PcItem("exit"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()
	c.readline = rl

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println("^C")
				continue
			}
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		parts := strings.Fields(input)
		cmd, args := parts[0], parts[1:]
		if err := c.executeCommand(cmd, args); err != nil {
			fmt.Println(boldRed("Error:"), err)
		}
	}
}

func (c *Console) executeCommand(cmd string, args []string) error {
	switch cmd {
	case "help":
		c.showHelp()
		return nil
	case "proposals":
		return c.listProposals()
	case "proposal":
		return c.showProposal(args)
	case "approve":
		return c.decideProposal(args, proposal.DecisionApprove)
	case "deny":
		return c.decideProposal(args, proposal.DecisionDeny)
	case "runs":
		return c.listRuns()
	case "run":
		return c.showRun(args)
	case "cancel-run":
		return c.cancelRun(args)
	case "tasks":
		return c.listTasks()
	case "pause-task":
		return c.taskAction(args, c.schedule.PauseTask)
	case "resume-task":
		return c.taskAction(args, c.schedule.ResumeTask)
	case "cancel-task":
		return c.taskAction(args, c.schedule.CancelTask)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (c *Console) showHelp() {
	fmt.Println(boldGreen("Commands:"))
	fmt.Println("  proposals                 list every recorded proposal")
	fmt.Println("  proposal <id>             show one proposal's actions and status")
	fmt.Println("  approve <id>              approve a pending proposal (records the decision; nothing is dispatched)")
	fmt.Println("  deny <id> [reason]        deny a pending proposal")
	fmt.Println("  runs                      list the most recent background runs")
	fmt.Println("  run <id>                  show one background run")
	fmt.Println("  cancel-run <id>           request cancellation of an in-flight run")
	fmt.Println("  tasks                     list every scheduled task")
	fmt.Println("  pause-task <id>           pause a scheduled task")
	fmt.Println("  resume-task <id>          resume a paused scheduled task")
	fmt.Println("  cancel-task <id>          permanently cancel a scheduled task")
	fmt.Println("  exit / quit               leave the console")
}

func (c *Console) listProposals() error {
	all, err := c.proposals.ListAll()
	if err != nil {
		return fmt.Errorf("list proposals: %w", err)
	}
	if len(all) == 0 {
		fmt.Println(dimText("no proposals recorded"))
		return nil
	}
	for _, p := range all {
		fmt.Printf("%s  %-10s  chat=%s  actions=%d\n", p.ID, p.Status, p.ChatID, len(p.Actions))
	}
	return nil
}

func (c *Console) showProposal(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: proposal <id>")
	}
	p, ok, err := c.proposals.GetByID(args[0])
	if err != nil {
		return fmt.Errorf("get proposal: %w", err)
	}
	if !ok {
		return fmt.Errorf("no proposal with id %s", args[0])
	}
	fmt.Printf("id:          %s\n", p.ID)
	fmt.Printf("status:      %s\n", p.Status)
	fmt.Printf("chat:        %s (%s)\n", p.ChatID, p.GroupFolder)
	fmt.Printf("created:     %s\n", p.CreatedAt)
	for i, a := range p.Actions {
		fmt.Printf("  [%d] %s  reason=%q\n", i, a.Type, a.Reason)
	}
	return nil
}

func (c *Console) decideProposal(args []string, decision proposal.Decision) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <id> [reason]", decision)
	}
	reason := strings.Join(args[1:], " ")
	res, ok, err := c.proposals.Decide(args[0], decision, reason)
	if err != nil {
		return fmt.Errorf("decide proposal: %w", err)
	}
	if !ok {
		return fmt.Errorf("no proposal with id %s", args[0])
	}
	if !res.Applied {
		fmt.Println(boldYellow("already decided:"), fmt.Sprintf("proposal %s is already %s", args[0], res.AlreadyAt))
		return nil
	}
	fmt.Println(boldGreen("decision recorded:"), res.Proposal.Status)
	return nil
}

func (c *Console) listRuns() error {
	runs, err := c.runs.List(c.ctx, 0)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println(dimText("no runs recorded"))
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-10s  %s  %s\n", r.ID, r.Status, r.ActionType, r.Summary)
	}
	return nil
}

func (c *Console) showRun(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: run <id>")
	}
	r, ok, err := c.runs.Get(c.ctx, args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if !ok {
		return fmt.Errorf("no run with id %s", args[0])
	}
	fmt.Printf("id:      %s\n", r.ID)
	fmt.Printf("status:  %s\n", r.Status)
	fmt.Printf("type:    %s\n", r.ActionType)
	fmt.Printf("created: %s\n", r.CreatedAt)
	if r.ErrorText != "" {
		fmt.Printf("error:   %s\n", r.ErrorText)
	}
	if r.ResultText != "" {
		fmt.Printf("result:  %s\n", r.ResultText)
	}
	return nil
}

func (c *Console) cancelRun(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cancel-run <id>")
	}
	if err := c.runs.Cancel(c.ctx, args[0]); err != nil {
		return fmt.Errorf("cancel run: %w", err)
	}
	fmt.Println(boldGreen("cancellation requested"))
	return nil
}

func (c *Console) listTasks() error {
	tasks, err := c.schedule.ListAll(c.ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println(dimText("no scheduled tasks"))
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("%s  %-10s  %-8s  next=%s  %s\n", t.ID, t.Status, t.ScheduleType, t.NextRun.Format(time.RFC3339), t.Prompt)
	}
	return nil
}

func (c *Console) taskAction(args []string, action func(ctx context.Context, id string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: <command> <task-id>")
	}
	if err := action(c.ctx, args[0]); err != nil {
		return err
	}
	fmt.Println(boldGreen("ok"))
	return nil
}
