// Package corestate holds the message loop's process-local, process-wide
// mutable state: the fetch watermark, the per-chat agent watermarks, the
// planner session map, and the registered-groups map. Each is a small flat
// JSON document under DATA_DIR, backed by pkg/statefile so every write is
// load -> mutate snapshot -> atomicSave, never ambient mutation.
package corestate

import (
	"path/filepath"
	"time"
)

// RegisteredGroup is one entry in registered_groups.json: a chat the
// message loop and IPC watcher are authorized to act on behalf of.
type RegisteredGroup struct {
	ChatID       string    `json:"chatId"`
	GroupFolder  string    `json:"groupFolder"`
	IsMainGroup  bool      `json:"isMainGroup"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// RouterState is router_state.json: the global fetch watermark plus the
// per-chat agent watermark map used to gate which messages a turn sees.
type RouterState struct {
	LastTimestamp      time.Time            `json:"last_timestamp"`
	LastAgentTimestamp map[string]time.Time `json:"last_agent_timestamp"`
}

func zeroRouterState() RouterState {
	return RouterState{LastAgentTimestamp: map[string]time.Time{}}
}

// Sessions is sessions.json: groupFolder -> opaque planner session id.
type Sessions map[string]string

func zeroSessions() Sessions { return Sessions{} }

// RegisteredGroups is registered_groups.json: chatId -> RegisteredGroup.
type RegisteredGroups map[string]RegisteredGroup

func zeroRegisteredGroups() RegisteredGroups { return RegisteredGroups{} }

// Paths returns the three documents' filesystem paths rooted at dataDir,
// matching the DATA_DIR that cmd/bootstrap.go creates.
type Paths struct {
	RouterState      string
	Sessions         string
	RegisteredGroups string
}

// NewPaths builds the standard DATA_DIR layout for the three documents.
func NewPaths(dataDir string) Paths {
	return Paths{
		RouterState:      filepath.Join(dataDir, "router_state.json"),
		Sessions:         filepath.Join(dataDir, "sessions.json"),
		RegisteredGroups: filepath.Join(dataDir, "registered_groups.json"),
	}
}
