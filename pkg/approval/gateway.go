package approval

import (
	"context"
	"fmt"

	"github.com/nanoclaw-ops/nanoclaw/pkg/chat"
	"github.com/nanoclaw-ops/nanoclaw/pkg/dispatch"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/nanoclaw-ops/nanoclaw/pkg/plan"
	"github.com/nanoclaw-ops/nanoclaw/pkg/planner"
	"github.com/nanoclaw-ops/nanoclaw/pkg/proposal"
	"go.uber.org/zap"
)

// Gateway owns the proposal state machine's user-visible approve/deny
// surface. It never executes actions itself: on approval it hands the
// proposal's actions to the dispatcher, routes any web_fetch results
// through the planner for summarization, and posts back whatever comes
// out.
type Gateway struct {
	proposals  *proposal.Store
	dispatcher *dispatch.Client
	chat       chat.Chat
	planner    planner.Planner
}

// NewGateway wires a Gateway against its four collaborators.
func NewGateway(proposals *proposal.Store, dispatcher *dispatch.Client, c chat.Chat, p planner.Planner) *Gateway {
	return &Gateway{proposals: proposals, dispatcher: dispatcher, chat: c, planner: p}
}

// HandleText parses and applies a text command from chatID, replying
// directly into that chat. Non-command text is a no-op (the message loop
// is responsible for ordinary conversational turns).
func (g *Gateway) HandleText(ctx context.Context, chatID, text string) error {
	cmd := ParseTextCommand(text)
	switch cmd.Kind {
	case CommandList:
		return g.handleList(ctx, chatID)
	case CommandApprove:
		return g.handleDecide(ctx, chatID, cmd.ID, proposal.DecisionApprove, "")
	case CommandDeny:
		return g.handleDecide(ctx, chatID, cmd.ID, proposal.DecisionDeny, cmd.Reason)
	default:
		return nil
	}
}

// HandleCallback applies an inline-button payload from chatID.
func (g *Gateway) HandleCallback(ctx context.Context, chatID, payload string) error {
	cmd := ParseCallback(payload)
	switch cmd.Kind {
	case CommandApprove:
		return g.handleDecide(ctx, chatID, cmd.ID, proposal.DecisionApprove, "")
	case CommandDeny:
		return g.handleDecide(ctx, chatID, cmd.ID, proposal.DecisionDeny, "")
	case CommandReasonPrompt:
		return g.chat.SendMessage(ctx, chatID, fmt.Sprintf("reply with \"/deny %s <reason>\" to deny with a reason", cmd.ID))
	default:
		return nil
	}
}

func (g *Gateway) handleList(ctx context.Context, chatID string) error {
	pending, err := g.proposals.ListPendingByChat(chatID, MaxListedProposals)
	if err != nil {
		return fmt.Errorf("list pending proposals for %s: %w", chatID, err)
	}
	return g.chat.SendMessage(ctx, chatID, RenderPendingList(pending))
}

func (g *Gateway) handleDecide(ctx context.Context, chatID, id string, decision proposal.Decision, reason string) error {
	res, found, err := g.proposals.Decide(id, decision, reason)
	if err != nil {
		return fmt.Errorf("decide proposal %s: %w", id, err)
	}
	if !found {
		return g.chat.SendMessage(ctx, chatID, fmt.Sprintf("no proposal with id %s", id))
	}
	if !res.Applied {
		return g.chat.SendMessage(ctx, chatID, RenderDecisionAck(res, false))
	}

	if err := g.chat.SendMessage(ctx, chatID, RenderDecisionAck(res, true)); err != nil {
		return err
	}

	if res.Proposal.Status != proposal.StatusApproved {
		return nil // denial: acknowledgment already sent, nothing to dispatch
	}

	results, err := g.dispatcher.Send(ctx, res.Proposal.Actions)
	if err != nil {
		logger.Error("dispatch failed for approved proposal", zap.String("proposalId", id), zap.Error(err))
		return g.chat.SendMessage(ctx, chatID, fmt.Sprintf("proposal %s approved, but dispatch failed: %v", id, err))
	}

	g.summarizeWebFetchResults(ctx, res.Proposal.Actions, results)

	rendered := RenderResults(res.Proposal.Actions, results)
	for _, chunk := range Chunk(rendered, chat.MaxMessageBytes) {
		if err := g.chat.SendMessage(ctx, chatID, chunk); err != nil {
			return fmt.Errorf("send dispatch results for proposal %s: %w", id, err)
		}
	}
	return nil
}

// summarizeWebFetchResults replaces each completed web_fetch result's raw
// fetched body with a planner-produced summary, in place. A summarization
// failure leaves that result's raw text untouched rather than failing the
// whole dispatch — the fetch itself already succeeded.
func (g *Gateway) summarizeWebFetchResults(ctx context.Context, actions []plan.Action, results []dispatch.ActionResult) {
	if g.planner == nil {
		return
	}
	for i, a := range actions {
		if i >= len(results) || a.Type != plan.ActionWebFetch || results[i].Status != "completed" {
			continue
		}
		if results[i].Stdout == "" {
			continue
		}
		resp, err := g.planner.Complete(ctx, planner.TurnRequest{
			SystemPrompt: "Summarize the fetched page content below for a chat reply. Be concise: a few sentences, plain text, no code fences.",
			UserPrompt:   fmt.Sprintf("URL: %s\n\n%s", a.URL, results[i].Stdout),
		})
		if err != nil {
			logger.Warn("web_fetch summarization failed, falling back to raw text", zap.String("url", a.URL), zap.Error(err))
			continue
		}
		results[i].Stdout = resp.Text
	}
}
