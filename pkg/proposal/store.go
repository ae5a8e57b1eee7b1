package proposal

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nanoclaw-ops/nanoclaw/pkg/statefile"
)

// journal is the on-disk shape of action-queue.json: a flat, append-only
// list of every proposal ever created.
type journal struct {
	Proposals []Proposal `json:"proposals"`
}

// Store is the single owner of the proposal journal. It is safe for
// concurrent use; decide additionally linearizes per-id so a racing
// text-command and inline-button callback for the same proposal can never
// both apply.
type Store struct {
	backing *statefile.Store[journal]

	decideMu sync.Mutex
	perID    map[string]*sync.Mutex
}

// NewStore opens (without yet reading) the proposal journal rooted at
// dataDir/action-queue.json.
func NewStore(dataDir string) *Store {
	path := filepath.Join(dataDir, "action-queue.json")
	return &Store{
		backing: statefile.New(path, func() journal { return journal{} }),
		perID:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-proposal-id mutex, creating it on first use.
func (s *Store) lockFor(id string) *sync.Mutex {
	s.decideMu.Lock()
	defer s.decideMu.Unlock()
	m, ok := s.perID[id]
	if !ok {
		m = &sync.Mutex{}
		s.perID[id] = m
	}
	return m
}

// Enqueue persists a new proposal. Proposals with zero actions are rejected
// without being written.
func (s *Store) Enqueue(p Proposal) (Proposal, error) {
	if len(p.Actions) == 0 {
		return Proposal{}, ErrZeroActions
	}
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Status = StatusProposed

	_, err := s.backing.Mutate(func(j journal) (journal, error) {
		j.Proposals = append(j.Proposals, p)
		return j, nil
	})
	if err != nil {
		return Proposal{}, err
	}
	return p, nil
}

// ListPendingByChat returns up to limit proposals still StatusProposed for
// chatID, oldest first. limit <= 0 means no cap.
func (s *Store) ListPendingByChat(chatID string, limit int) ([]Proposal, error) {
	j, err := s.backing.Snapshot()
	if err != nil {
		return nil, err
	}
	var out []Proposal
	for _, p := range j.Proposals {
		if p.ChatID != chatID || p.Status != StatusProposed {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListAll returns every proposal ever recorded, oldest first. Used by the
// debug console, which needs visibility beyond one chat's pending set.
func (s *Store) ListAll() ([]Proposal, error) {
	j, err := s.backing.Snapshot()
	if err != nil {
		return nil, err
	}
	return j.Proposals, nil
}

// GetByID returns the proposal with the given id, or false if none exists.
func (s *Store) GetByID(id string) (Proposal, bool, error) {
	j, err := s.backing.Snapshot()
	if err != nil {
		return Proposal{}, false, err
	}
	for _, p := range j.Proposals {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Proposal{}, false, nil
}

// Decide transitions the proposal to approved or denied. It is the single
// linearization point for competing decisions on the same id: only the
// first caller to observe status "proposed" applies; everyone else gets
// Applied=false and AlreadyAt set to whatever status won.
//
// Returns ok=false if the id does not exist at all.
func (s *Store) Decide(id string, decision Decision, reason string) (DecideResult, bool, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	var result DecideResult
	found := false

	_, err := s.backing.Mutate(func(j journal) (journal, error) {
		for i := range j.Proposals {
			if j.Proposals[i].ID != id {
				continue
			}
			found = true
			p := j.Proposals[i]

			if p.Status != StatusProposed {
				result = DecideResult{Proposal: p, Applied: false, AlreadyAt: p.Status}
				return j, nil
			}

			now := time.Now().UTC()
			switch decision {
			case DecisionApprove:
				p.Status = StatusApproved
			case DecisionDeny:
				p.Status = StatusDenied
			}
			p.DecidedAt = &now
			if reason != "" {
				p.DecisionReason = reason
			}
			j.Proposals[i] = p
			result = DecideResult{Proposal: p, Applied: true}
			return j, nil
		}
		return j, nil
	})
	if err != nil {
		return DecideResult{}, found, err
	}
	if !found {
		return DecideResult{}, false, nil
	}
	return result, true, nil
}
