package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackChat implements Chat by wrapping a slack-go/slack client. Channel
// IDs double as chat IDs; inline buttons are Slack Block Kit interactive
// messages carrying "approve:<id>"/"deny:<id>"/"reason:<id>" action values.
type SlackChat struct {
	client *slack.Client
}

// NewSlackChat builds a SlackChat authenticated with botToken.
func NewSlackChat(botToken string) *SlackChat {
	return &SlackChat{client: slack.New(botToken)}
}

// SendMessage posts text to chatID, chunking at line boundaries when it
// exceeds MaxMessageBytes.
func (s *SlackChat) SendMessage(ctx context.Context, chatID, text string) error {
	for _, chunk := range chunkByLines(text, MaxMessageBytes) {
		_, _, err := s.client.PostMessageContext(ctx, chatID, slack.MsgOptionText(chunk, false))
		if err != nil {
			return fmt.Errorf("post slack message to %s: %w", chatID, err)
		}
	}
	return nil
}

// chunkByLines splits text into chunks no larger than maxBytes, breaking
// only at line boundaries so a chunk never splits mid-line.
func chunkByLines(text string, maxBytes int) []string {
	if len(text) <= maxBytes {
		return []string{text}
	}

	lines := strings.Split(text, "\n")
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, line := range lines {
		if cur.Len()+len(line)+1 > maxBytes {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(line)
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// FetchNewMessages lists conversation history for every channel the bot is
// a member of, filtering to messages strictly after `after`, merged and
// sorted ascending by time.
func (s *SlackChat) FetchNewMessages(ctx context.Context, after time.Time) ([]InboundMessage, error) {
	channels, _, err := s.client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
	})
	if err != nil {
		return nil, fmt.Errorf("list slack conversations: %w", err)
	}

	var out []InboundMessage
	oldest := fmt.Sprintf("%.6f", float64(after.UnixNano())/1e9)

	for _, ch := range channels {
		history, err := s.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: ch.ID,
			Oldest:    oldest,
			Inclusive: false,
		})
		if err != nil {
			logger.Warn("failed to fetch slack history for channel", zap.String("channel", ch.ID), zap.Error(err))
			continue
		}
		for _, m := range history.Messages {
			ts, perr := parseSlackTimestamp(m.Timestamp)
			if perr != nil || !ts.After(after) {
				continue
			}
			out = append(out, InboundMessage{
				ChatID:    ch.ID,
				Author:    m.User,
				Text:      m.Text,
				Timestamp: ts,
			})
		}
	}

	sortByTimestamp(out)
	return out, nil
}

func sortByTimestamp(messages []InboundMessage) {
	for i := 1; i < len(messages); i++ {
		for j := i; j > 0 && messages[j].Timestamp.Before(messages[j-1].Timestamp); j-- {
			messages[j], messages[j-1] = messages[j-1], messages[j]
		}
	}
}

func parseSlackTimestamp(ts string) (time.Time, error) {
	var sec, nsec int64
	_, err := fmt.Sscanf(ts, "%d.%d", &sec, &nsec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slack timestamp %q: %w", ts, err)
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// RegisterCallback posts an interactive Block Kit message to chatID with
// approve/deny/reason buttons for proposalID.
func (s *SlackChat) RegisterCallback(ctx context.Context, chatID, proposalID string) error {
	approve := slack.NewButtonBlockElement("approve", "approve:"+proposalID, slack.NewTextBlockObject(slack.PlainTextType, "Approve", false, false))
	approve.Style = slack.StylePrimary

	deny := slack.NewButtonBlockElement("deny", "deny:"+proposalID, slack.NewTextBlockObject(slack.PlainTextType, "Deny", false, false))
	deny.Style = slack.StyleDanger

	reason := slack.NewButtonBlockElement("reason", "reason:"+proposalID, slack.NewTextBlockObject(slack.PlainTextType, "Reason", false, false))

	actions := slack.NewActionBlock("proposal_"+proposalID, approve, deny, reason)

	_, _, err := s.client.PostMessageContext(ctx, chatID, slack.MsgOptionBlocks(actions))
	if err != nil {
		return fmt.Errorf("register slack callback for proposal %s: %w", proposalID, err)
	}
	return nil
}
