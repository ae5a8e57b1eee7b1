package messageloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/approval"
	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"go.uber.org/zap"
)

// TickInterval is the message loop's cooperative polling period.
const TickInterval = 2 * time.Second

// Loop is the message-loop collaborator: it owns no long-lived goroutine
// itself beyond the one started by Run. Of the shared state store's
// documents it writes the router watermark (AdvanceWatermark) directly and
// the session map through RunTurn.
type Loop struct {
	tc        TurnCollaborators
	gateway   *approval.Gateway
	assistant string
}

// New builds a Loop. assistantName is the trigger-prefix token (without
// the leading "@") a non-main-group chat must include to be processed.
func New(tc TurnCollaborators, gateway *approval.Gateway, assistantName string) *Loop {
	return &Loop{tc: tc, gateway: gateway, assistant: assistantName}
}

// Run blocks, ticking every TickInterval until ctx is cancelled. Each tick
// runs Tick and logs (but does not propagate) its error, matching the
// "independent, non-reentrant loop" concurrency model: a slow or failing
// tick delays the next tick but never crashes the process.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				logger.Error("message loop tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one pass: fetch new messages since the global watermark,
// group them by chat, and process each chat's registered backlog in
// ascending time order. A failing chat stops the whole batch immediately
// (at-least-once: the failing message and everything after it in this
// batch is retried next tick because the watermark was not advanced for
// it), matching the per-batch abort rule.
func (l *Loop) Tick(ctx context.Context) error {
	state, err := l.tc.State.RouterState()
	if err != nil {
		return fmt.Errorf("load router state: %w", err)
	}

	groups, err := l.tc.State.RegisteredGroups()
	if err != nil {
		return fmt.Errorf("load registered groups: %w", err)
	}

	messages, err := l.tc.Chat.FetchNewMessages(ctx, state.LastTimestamp)
	if err != nil {
		return fmt.Errorf("fetch new messages: %w", err)
	}

	byChat := map[string][]int{}
	for i, m := range messages {
		byChat[m.ChatID] = append(byChat[m.ChatID], i)
	}

	for chatID, idxs := range byChat {
		group, registered := groups[chatID]
		if !registered {
			continue
		}

		watermark, err := l.tc.State.AgentWatermark(chatID)
		if err != nil {
			return fmt.Errorf("load watermark for %s: %w", chatID, err)
		}

		var backlog []string
		var latest time.Time
		triggered := group.IsMainGroup
		for _, i := range idxs {
			m := messages[i]
			if !m.Timestamp.After(watermark) {
				continue
			}
			text := strings.TrimSpace(m.Text)
			if text == "" {
				continue
			}

			// Approval commands bypass the planner entirely: they never
			// require the trigger prefix and are handled one at a time so
			// a batched "/approve x" alongside ordinary chat text still
			// takes effect.
			if approval.ParseTextCommand(text).Kind != approval.CommandNone {
				if err := l.gateway.HandleText(ctx, chatID, text); err != nil {
					return fmt.Errorf("handle command for %s: %w", chatID, err)
				}
				if m.Timestamp.After(latest) {
					latest = m.Timestamp
				}
				if err := l.tc.State.AdvanceWatermark(chatID, m.Timestamp); err != nil {
					return fmt.Errorf("advance watermark for %s (command): %w", chatID, err)
				}
				continue
			}

			if strings.Contains(text, "@"+l.assistant) {
				triggered = true
			}
			backlog = append(backlog, text)
			if m.Timestamp.After(latest) {
				latest = m.Timestamp
			}
		}
		if len(backlog) == 0 {
			continue
		}

		if !triggered {
			if err := l.tc.State.AdvanceWatermark(chatID, latest); err != nil {
				return fmt.Errorf("advance watermark for %s (ignored, untriggered): %w", chatID, err)
			}
			continue
		}

		userPrompt := strings.Join(backlog, "\n\n")
		if err := RunTurn(ctx, l.tc, group.GroupFolder, chatID, userPrompt, false); err != nil {
			return fmt.Errorf("process chat %s: %w", chatID, err)
		}
		if err := l.tc.State.AdvanceWatermark(chatID, latest); err != nil {
			return fmt.Errorf("advance watermark for %s: %w", chatID, err)
		}
	}

	return nil
}
