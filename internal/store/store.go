package store

import (
	"sync"
	"time"

	"pollboard/pkg/types"
)

// Store holds the single shared session state: the active poll, the result
// history, the roster, and the chat log. It contains no business logic; all
// other components mutate through its methods, each of which is atomic
// under the store lock. No component keeps a divergent copy of this state.
type Store struct {
	mu        sync.RWMutex
	current   *types.Poll
	results   []*types.PollResult // oldest first; last entry tracks the current poll
	roster    map[string]*types.Student
	chat      []types.ChatMessage
	chatLimit int
}

// New creates an empty session store. chatLimit bounds the retained chat
// log; values below 1 fall back to 100.
func New(chatLimit int) *Store {
	if chatLimit < 1 {
		chatLimit = 100
	}
	return &Store{
		roster:    make(map[string]*types.Student),
		chatLimit: chatLimit,
	}
}

// --- active poll slot ---

// SetCurrentPoll installs poll as the active poll and seeds its result into
// the history. The caller (the lifecycle manager) guarantees the slot is
// empty.
func (s *Store) SetCurrentPoll(poll *types.Poll, result *types.PollResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = poll
	s.results = append(s.results, result)
}

// CurrentPoll returns a copy of the active poll, or nil when idle.
func (s *Store) CurrentPoll() *types.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	p.Options = append([]string(nil), s.current.Options...)
	return &p
}

// ClearCurrentPoll deactivates and removes the active poll, stamping its
// end time. It returns the final result snapshot, or nil when already idle.
func (s *Store) ClearCurrentPoll(endedAt time.Time) *types.PollResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	s.current.IsActive = false
	s.current.EndTime = &endedAt
	id := s.current.ID
	s.current = nil
	return s.findResult(id).Clone()
}

// --- results ---

// MutateResult is the single mutation surface for vote state. fn runs with
// the live result for pollID while the store lock is held, so a revote's
// decrement/increment pair can never be observed half-applied. It returns a
// snapshot of the updated result for broadcasting.
func (s *Store) MutateResult(pollID string, fn func(*types.PollResult) error) (*types.PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.findResult(pollID)
	if result == nil {
		return nil, types.ErrUnknownPoll
	}
	if err := fn(result); err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// ResultSnapshot returns a copy of the result for pollID, or nil.
func (s *Store) ResultSnapshot(pollID string) *types.PollResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findResult(pollID).Clone()
}

// Results returns snapshots of every stored result, oldest first.
func (s *Store) Results() []*types.PollResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.PollResult, len(s.results))
	for i, r := range s.results {
		out[i] = r.Clone()
	}
	return out
}

// ResultCount returns the number of stored results.
func (s *Store) ResultCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *Store) findResult(pollID string) *types.PollResult {
	for _, r := range s.results {
		if r.PollID == pollID {
			return r
		}
	}
	return nil
}

// --- roster ---

// UpsertStudent inserts or overwrites the roster entry keyed by id, so a
// reconnect with the same id never duplicates the student.
func (s *Store) UpsertStudent(student *types.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster[student.ID] = student
}

// RemoveStudent deletes and returns the roster entry, or nil if absent.
func (s *Store) RemoveStudent(id string) *types.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.roster[id]
	if !ok {
		return nil
	}
	delete(s.roster, id)
	return student
}

// RemoveStudentIfSession deletes the roster entry only when its stored
// transport handle is session, so a stale disconnect from a replaced
// connection cannot evict a reconnected student. Returns the removed entry,
// or nil when absent or held by a different session.
func (s *Store) RemoveStudentIfSession(id string, session types.TransportSession) *types.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := s.roster[id]
	if !ok || student.Session != session {
		return nil
	}
	delete(s.roster, id)
	return student
}

// Roster returns copies of every present student. Consumers treat it as a
// replace-whole-list update, so order is not significant.
func (s *Store) Roster() []types.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Student, 0, len(s.roster))
	for _, st := range s.roster {
		out = append(out, *st)
	}
	return out
}

// StudentCount returns the number of present students.
func (s *Store) StudentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roster)
}

// --- chat ---

// AppendChat appends msg and trims the log to the retention limit, oldest
// entries dropped first.
func (s *Store) AppendChat(msg types.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, msg)
	if len(s.chat) > s.chatLimit {
		s.chat = append([]types.ChatMessage(nil), s.chat[len(s.chat)-s.chatLimit:]...)
	}
}

// ChatHistory returns a copy of the retained chat log, oldest first.
func (s *Store) ChatHistory() []types.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ChatMessage(nil), s.chat...)
}
