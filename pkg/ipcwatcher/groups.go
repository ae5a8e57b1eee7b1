package ipcwatcher

import (
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/corestate"
)

func registeredGroup(chatID, groupFolder string, isMainGroup bool) corestate.RegisteredGroup {
	return corestate.RegisteredGroup{
		ChatID:       chatID,
		GroupFolder:  groupFolder,
		IsMainGroup:  isMainGroup,
		RegisteredAt: time.Now().UTC(),
	}
}
