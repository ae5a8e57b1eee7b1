// Package messageloop runs the core's primary cooperative loop: poll chat
// transport for new messages, turn each registered chat's unseen backlog
// into a planner turn, and surface the result (reply, proposal, or both).
package messageloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/nanoclaw-ops/nanoclaw/pkg/approval"
	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/memory"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/nanoclaw-ops/nanoclaw/pkg/planner"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"go.uber.org/zap"
)

// TurnCollaborators bundles the handful of external/internal services a
// planner turn needs, shared between the message loop and the scheduler
// (which runs turns for scheduled tasks through the same path).
type TurnCollaborators struct {
	Chat      chat.Chat
	Planner   planner.Planner
	Memory    memory.Source
	Proposals *proposal.Store
	State     *corestate.Store
}

// RunTurn executes one planner turn for groupFolder/chatID against the
// concatenated userPrompt, following the process path: memory header ->
// planner -> parse -> repair-once-on-failure -> web_fetch injection ->
// enqueue-if-actions -> reply (stripped) -> inline-button surface.
//
// isScheduled adds a line to the system prompt telling the planner the turn
// comes from a scheduled task; the request is otherwise the same.
func RunTurn(ctx context.Context, tc TurnCollaborators, groupFolder, chatID, userPrompt string, isScheduled bool) error {
	header, err := tc.Memory.BuildHeader(ctx, groupFolder, userPrompt)
	if err != nil {
		return fmt.Errorf("build memory header for %s: %w", groupFolder, err)
	}

	sessionID, ok, err := tc.State.Session(groupFolder)
	if err != nil {
		return fmt.Errorf("load session for %s: %w", groupFolder, err)
	}
	if !ok {
		sessionID = proposal.NewID()
		if err := tc.State.SetSession(groupFolder, sessionID); err != nil {
			return fmt.Errorf("persist new session for %s: %w", groupFolder, err)
		}
	}

	result, rawText, err := completeAndParse(ctx, tc.Planner, plan.RepairSystemPrompt, planner.TurnRequest{
		SystemPrompt: planSystemPrompt(sessionID, isScheduled),
		MemoryHeader: header,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		logger.Error("planner turn failed", zap.String("groupFolder", groupFolder), zap.Error(err))
		return tc.Chat.SendMessage(ctx, chatID, "could not generate a complete answer")
	}

	p := result.Plan
	if len(result.Errors) == 0 {
		p = plan.InjectWebFetch(userPrompt, result.Plan)
	}

	if len(p.Actions) > 0 {
		prop, err := tc.Proposals.Enqueue(proposal.Proposal{
			GroupFolder: groupFolder,
			ChatID:      chatID,
			RequestText: userPrompt,
			Actions:     p.Actions,
		})
		if err != nil {
			return fmt.Errorf("enqueue proposal for %s: %w", chatID, err)
		}

		reply := strings.TrimSpace(plan.StripPlanBlock(rawText))
		if reply != "" {
			if err := tc.Chat.SendMessage(ctx, chatID, reply); err != nil {
				return fmt.Errorf("send reply for %s: %w", chatID, err)
			}
		}
		if err := tc.Chat.RegisterCallback(ctx, chatID, prop.ID); err != nil {
			return fmt.Errorf("register approval callback for %s: %w", prop.ID, err)
		}
		return nil
	}

	reply := strings.TrimSpace(plan.StripPlanBlock(rawText))
	if reply == "" {
		return nil
	}
	for _, chunk := range approval.Chunk(reply, chat.MaxMessageBytes) {
		if err := tc.Chat.SendMessage(ctx, chatID, chunk); err != nil {
			return fmt.Errorf("send reply for %s: %w", chatID, err)
		}
	}
	return nil
}

// completeAndParse invokes the planner and parses its reply, running the
// one-shot repair protocol if the first attempt doesn't parse. A repair
// failure degrades to an empty plan (its Errors left set, so the caller can
// tell it from a successful parse) with the original reply text kept for
// stripping, per the repair protocol's "treated as empty, logged" rule.
func completeAndParse(ctx context.Context, p planner.Planner, systemPrompt string, req planner.TurnRequest) (plan.ParseResult, string, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return plan.ParseResult{}, "", fmt.Errorf("planner turn: %w", err)
	}

	result := plan.Parse(resp.Text)
	if len(result.Errors) == 0 {
		return result, resp.Text, nil
	}

	repairReq := req
	repairReq.SystemPrompt = req.SystemPrompt + "\n\n" + plan.RepairPrompt(result.Errors)
	repairReq.IsRepair = true

	repairResp, err := p.Complete(ctx, repairReq)
	if err != nil {
		logger.Error("plan repair attempt failed", zap.Error(err))
		return plan.ParseResult{Errors: result.Errors}, resp.Text, nil
	}

	repaired := plan.Parse(repairResp.Text)
	if len(repaired.Errors) > 0 {
		logger.Error("plan repair attempt still invalid", zap.Strings("errors", repaired.Errors))
		return plan.ParseResult{Errors: repaired.Errors}, resp.Text, nil
	}
	return repaired, repairResp.Text, nil
}

func planSystemPrompt(sessionID string, isScheduled bool) string {
	prompt := plan.RepairSystemPrompt
	if sessionID != "" {
		prompt += fmt.Sprintf("\n\nContinuing session %s.", sessionID)
	}
	if isScheduled {
		prompt += "\n\nThis turn was triggered by a scheduled task, not a live chat message."
	}
	return prompt
}
