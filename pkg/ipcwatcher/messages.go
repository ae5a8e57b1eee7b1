package ipcwatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nanoclaw-ops/nanoclaw/pkg/logger"
	"go.uber.org/zap"
)

// messageFile is the messages/*.json shape.
type messageFile struct {
	Type    string `json:"type"`
	ChatJID string `json:"chatJid"`
	Text    string `json:"text"`
}

// handleMessage validates and applies a messages/*.json file: send Text to
// ChatJID, but only if source is the main group or source's own registered
// folder owns that chat.
func (w *Watcher) handleMessage(ctx context.Context, source string, raw []byte) error {
	var m messageFile
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode message file: %w", err)
	}
	if m.Type != "message" {
		return fmt.Errorf("unexpected type %q in messages file", m.Type)
	}
	if m.ChatJID == "" || m.Text == "" {
		return fmt.Errorf("message file missing chatJid or text")
	}

	authorized, err := w.authorizedForChat(source, m.ChatJID)
	if err != nil {
		return fmt.Errorf("check authorization: %w", err)
	}
	if !authorized {
		logger.Warn("dropping unauthorized ipc message", zap.String("source", source), zap.String("chatJid", m.ChatJID))
		return nil
	}

	return w.chat.SendMessage(ctx, m.ChatJID, m.Text)
}

// authorizedForChat reports whether source may act on chatJID: either
// source is the main group, or source's own registered group folder
// matches chatJID.
func (w *Watcher) authorizedForChat(source, chatJID string) (bool, error) {
	if source == mainSourceFolder {
		return true, nil
	}
	groups, err := w.state.RegisteredGroups()
	if err != nil {
		return false, err
	}
	group, ok := groups[chatJID]
	if !ok {
		return false, nil
	}
	return group.GroupFolder == source, nil
}
