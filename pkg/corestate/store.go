package corestate

import (
	"fmt"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/statefile"
)

// Store bundles the three flat documents the message loop, IPC watcher,
// and scheduler share. A single instance is constructed at startup and
// handed to each loop. The router watermark is written by the message loop
// and the registered-groups map by the IPC watcher; the session map is
// written from RunTurn, which both the message loop and the scheduler call.
// No operation spans two documents, so there is no cross-document locking —
// only pkg/statefile's per-document mutex.
type Store struct {
	router   *statefile.Store[RouterState]
	sessions *statefile.Store[Sessions]
	groups   *statefile.Store[RegisteredGroups]
}

// New builds a Store rooted at dataDir.
func New(dataDir string) *Store {
	paths := NewPaths(dataDir)
	return &Store{
		router:   statefile.New(paths.RouterState, zeroRouterState),
		sessions: statefile.New(paths.Sessions, zeroSessions),
		groups:   statefile.New(paths.RegisteredGroups, zeroRegisteredGroups),
	}
}

// RouterState returns a snapshot of the current watermark document.
func (s *Store) RouterState() (RouterState, error) {
	return s.router.Snapshot()
}

// AdvanceWatermark persists chatID's new per-chat watermark and, if ts is
// after the current global watermark, advances that too. Callers must only
// call this after a message has been fully processed (at-least-once:
// failure must not advance).
func (s *Store) AdvanceWatermark(chatID string, ts time.Time) error {
	state, err := s.router.Snapshot()
	if err != nil {
		return fmt.Errorf("load router state: %w", err)
	}
	if state.LastAgentTimestamp == nil {
		state.LastAgentTimestamp = map[string]time.Time{}
	}
	state.LastAgentTimestamp[chatID] = ts
	if ts.After(state.LastTimestamp) {
		state.LastTimestamp = ts
	}
	if err := s.router.Save(state); err != nil {
		return fmt.Errorf("save router state: %w", err)
	}
	return nil
}

// AgentWatermark returns the last-processed timestamp for chatID, or the
// zero time if the chat has never been processed.
func (s *Store) AgentWatermark(chatID string) (time.Time, error) {
	state, err := s.router.Snapshot()
	if err != nil {
		return time.Time{}, fmt.Errorf("load router state: %w", err)
	}
	return state.LastAgentTimestamp[chatID], nil
}

// Session returns groupFolder's stored planner session id, if any.
func (s *Store) Session(groupFolder string) (string, bool, error) {
	sessions, err := s.sessions.Snapshot()
	if err != nil {
		return "", false, fmt.Errorf("load sessions: %w", err)
	}
	id, ok := sessions[groupFolder]
	return id, ok, nil
}

// SetSession persists groupFolder's planner session id.
func (s *Store) SetSession(groupFolder, sessionID string) error {
	sessions, err := s.sessions.Snapshot()
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if sessions == nil {
		sessions = Sessions{}
	}
	sessions[groupFolder] = sessionID
	if err := s.sessions.Save(sessions); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// RegisteredGroups returns a snapshot of the full chatId -> group map.
func (s *Store) RegisteredGroups() (RegisteredGroups, error) {
	return s.groups.Snapshot()
}

// Group returns the registration for chatID, if registered.
func (s *Store) Group(chatID string) (RegisteredGroup, bool, error) {
	groups, err := s.groups.Snapshot()
	if err != nil {
		return RegisteredGroup{}, false, fmt.Errorf("load registered groups: %w", err)
	}
	g, ok := groups[chatID]
	return g, ok, nil
}

// ChatIDForGroup reverse-looks-up groupFolder's owning chat id, for
// callers (the scheduler) that only have a group folder name on hand.
func (s *Store) ChatIDForGroup(groupFolder string) (string, bool, error) {
	groups, err := s.groups.Snapshot()
	if err != nil {
		return "", false, fmt.Errorf("load registered groups: %w", err)
	}
	for chatID, g := range groups {
		if g.GroupFolder == groupFolder {
			return chatID, true, nil
		}
	}
	return "", false, nil
}

// RegisterGroup adds or replaces chatID's registration.
func (s *Store) RegisterGroup(g RegisteredGroup) error {
	groups, err := s.groups.Snapshot()
	if err != nil {
		return fmt.Errorf("load registered groups: %w", err)
	}
	if groups == nil {
		groups = RegisteredGroups{}
	}
	groups[g.ChatID] = g
	if err := s.groups.Save(groups); err != nil {
		return fmt.Errorf("save registered groups: %w", err)
	}
	return nil
}

// UnregisterGroup removes chatID's registration, if present.
func (s *Store) UnregisterGroup(chatID string) error {
	groups, err := s.groups.Snapshot()
	if err != nil {
		return fmt.Errorf("load registered groups: %w", err)
	}
	delete(groups, chatID)
	if err := s.groups.Save(groups); err != nil {
		return fmt.Errorf("save registered groups: %w", err)
	}
	return nil
}
