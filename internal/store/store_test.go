package store

import (
	"fmt"
	"testing"
	"time"

	"pollboard/pkg/types"
)

func newPollWithResult(id string) (*types.Poll, *types.PollResult) {
	now := time.Now()
	poll := &types.Poll{
		ID:        id,
		Question:  "Best fruit?",
		Options:   []string{"Apple", "Mango"},
		MaxTime:   10,
		IsActive:  true,
		CreatedAt: now,
		StartTime: now,
	}
	result := &types.PollResult{
		PollID:    id,
		Question:  poll.Question,
		Options:   []string{"Apple", "Mango"},
		Votes:     map[string]int{"Apple": 0, "Mango": 0},
		Responses: []types.PollResponse{},
		CreatedAt: now,
	}
	return poll, result
}

func TestStore_CurrentPollLifecycle(t *testing.T) {
	s := New(100)

	if s.CurrentPoll() != nil {
		t.Error("New store should have no current poll")
	}

	poll, result := newPollWithResult("p1")
	s.SetCurrentPoll(poll, result)

	current := s.CurrentPoll()
	if current == nil || current.ID != "p1" {
		t.Fatalf("Expected current poll p1, got %+v", current)
	}

	endedAt := time.Now()
	final := s.ClearCurrentPoll(endedAt)
	if final == nil || final.PollID != "p1" {
		t.Fatalf("Expected final result for p1, got %+v", final)
	}
	if s.CurrentPoll() != nil {
		t.Error("Store should be idle after ClearCurrentPoll")
	}
	if s.ResultCount() != 1 {
		t.Errorf("Result history should retain the ended poll, got %d", s.ResultCount())
	}

	// Clearing while idle is a no-op.
	if s.ClearCurrentPoll(time.Now()) != nil {
		t.Error("ClearCurrentPoll while idle should return nil")
	}
}

func TestStore_MutateResultUnknownPoll(t *testing.T) {
	s := New(100)
	_, err := s.MutateResult("missing", func(*types.PollResult) error { return nil })
	if err != types.ErrUnknownPoll {
		t.Errorf("Expected ErrUnknownPoll, got %v", err)
	}
}

func TestStore_MutateResultReturnsSnapshot(t *testing.T) {
	s := New(100)
	poll, result := newPollWithResult("p1")
	s.SetCurrentPoll(poll, result)

	snapshot, err := s.MutateResult("p1", func(r *types.PollResult) error {
		r.Votes["Apple"]++
		r.TotalVotes++
		return nil
	})
	if err != nil {
		t.Fatalf("MutateResult failed: %v", err)
	}

	// Further mutation must not show through the returned snapshot.
	_, _ = s.MutateResult("p1", func(r *types.PollResult) error {
		r.Votes["Apple"] = 50
		return nil
	})
	if snapshot.Votes["Apple"] != 1 {
		t.Errorf("Snapshot should be isolated from later mutation, got %d", snapshot.Votes["Apple"])
	}
}

func TestStore_RosterUpsertAndRemove(t *testing.T) {
	s := New(100)

	s.UpsertStudent(&types.Student{ID: "s1", Name: "Ana", IsOnline: true, JoinedAt: time.Now()})
	s.UpsertStudent(&types.Student{ID: "s1", Name: "Ana B", IsOnline: true, JoinedAt: time.Now()})

	if s.StudentCount() != 1 {
		t.Errorf("Re-join with same id should not duplicate, got %d students", s.StudentCount())
	}
	roster := s.Roster()
	if len(roster) != 1 || roster[0].Name != "Ana B" {
		t.Errorf("Re-join should overwrite the entry, got %+v", roster)
	}

	removed := s.RemoveStudent("s1")
	if removed == nil || removed.Name != "Ana B" {
		t.Errorf("RemoveStudent should return the entry, got %+v", removed)
	}
	if s.RemoveStudent("s1") != nil {
		t.Error("Removing an absent student should return nil")
	}
	if s.StudentCount() != 0 {
		t.Errorf("Expected empty roster, got %d", s.StudentCount())
	}
}

type rosterSession struct{ id int }

func (rosterSession) WriteJSON(v interface{}) error { return nil }
func (rosterSession) Close() error                  { return nil }

func TestStore_RemoveStudentIfSession(t *testing.T) {
	s := New(100)

	old := &rosterSession{id: 1}
	s.UpsertStudent(&types.Student{ID: "s1", Name: "Ana", IsOnline: true, Session: old})

	replacement := &rosterSession{id: 2}
	s.UpsertStudent(&types.Student{ID: "s1", Name: "Ana", IsOnline: true, Session: replacement})

	if s.RemoveStudentIfSession("s1", old) != nil {
		t.Error("Removal keyed to a replaced session must be a no-op")
	}
	if s.StudentCount() != 1 {
		t.Fatalf("Expected the reconnected entry to survive, got %d students", s.StudentCount())
	}

	removed := s.RemoveStudentIfSession("s1", replacement)
	if removed == nil || removed.ID != "s1" {
		t.Errorf("Expected removal with the live session, got %+v", removed)
	}
	if s.RemoveStudentIfSession("s1", replacement) != nil {
		t.Error("Removing an absent student should return nil")
	}
}

func TestStore_ChatLogBounded(t *testing.T) {
	s := New(5)

	for i := 0; i < 8; i++ {
		s.AppendChat(types.ChatMessage{
			ID:        fmt.Sprintf("m%d", i),
			Message:   fmt.Sprintf("message %d", i),
			Timestamp: time.Now(),
		})
	}

	history := s.ChatHistory()
	if len(history) != 5 {
		t.Fatalf("Expected chat log trimmed to 5, got %d", len(history))
	}
	if history[0].ID != "m3" {
		t.Errorf("Oldest entries should be evicted first, got %s at head", history[0].ID)
	}
	if history[4].ID != "m7" {
		t.Errorf("Newest entry should be retained, got %s at tail", history[4].ID)
	}
}
