// Package chat is the external chat-transport collaborator: the core talks
// to it only through this interface, never through slack-go directly
// outside this package.
package chat

import (
	"context"
	"time"
)

// InboundMessage is one message observed in a chat, as reported by
// FetchNewMessages.
type InboundMessage struct {
	ChatID      string
	Author      string
	Text        string
	Timestamp   time.Time
	IsMainGroup bool
}

// Chat is the interface the message loop, approval gateway, and scheduler
// use to send and receive chat traffic. The concrete implementation in
// this package wraps slack-go/slack; any other chat transport need only
// satisfy this interface.
type Chat interface {
	// SendMessage posts text to chatID, chunking internally if text
	// exceeds the transport's maximum message size.
	SendMessage(ctx context.Context, chatID, text string) error

	// FetchNewMessages returns messages across registered chats strictly
	// after the given timestamp, in ascending time order.
	FetchNewMessages(ctx context.Context, after time.Time) ([]InboundMessage, error)

	// RegisterCallback surfaces an inline-button approval surface (payload
	// values "approve:<id>", "deny:<id>", "reason:<id>") attached to the
	// most recent message posted to chatID for proposalID.
	RegisterCallback(ctx context.Context, chatID, proposalID string) error
}

// MaxMessageBytes is the chat transport's maximum single-message size;
// callers chunk at line boundaries above this.
const MaxMessageBytes = 3800
