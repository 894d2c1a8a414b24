package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pollboard/pkg/types"
)

func openTestArchive(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func sampleResult(pollID string) *types.PollResult {
	return &types.PollResult{
		PollID:     pollID,
		Question:   "Best fruit?",
		Options:    []string{"Apple", "Mango"},
		Votes:      map[string]int{"Apple": 1, "Mango": 2},
		TotalVotes: 3,
		Responses: []types.PollResponse{
			{StudentID: "s1", StudentName: "Ana", Answer: "Apple", Timestamp: time.Now()},
			{StudentID: "s2", StudentName: "Ben", Answer: "Mango", Timestamp: time.Now()},
			{StudentID: "s3", StudentName: "Cam", Answer: "Mango", Timestamp: time.Now()},
		},
		CreatedAt: time.Now(),
	}
}

func TestManager_SavePollResult(t *testing.T) {
	m := openTestArchive(t)

	if err := m.SavePollResult(sampleResult("p1")); err != nil {
		t.Fatalf("SavePollResult failed: %v", err)
	}
	if err := m.SavePollResult(sampleResult("p2")); err != nil {
		t.Fatalf("SavePollResult failed: %v", err)
	}

	count, err := m.PollCount(context.Background())
	if err != nil {
		t.Fatalf("PollCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 archived polls, got %d", count)
	}
}

func TestManager_SaveSamePollTwiceKeepsOneRow(t *testing.T) {
	m := openTestArchive(t)

	if err := m.SavePollResult(sampleResult("p1")); err != nil {
		t.Fatalf("SavePollResult failed: %v", err)
	}
	if err := m.SavePollResult(sampleResult("p1")); err != nil {
		t.Fatalf("SavePollResult failed: %v", err)
	}

	count, err := m.PollCount(context.Background())
	if err != nil {
		t.Fatalf("PollCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Re-archiving the same poll must replace, got %d rows", count)
	}
}

func TestManager_HealthCheck(t *testing.T) {
	m := openTestArchive(t)
	if err := m.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	m := openTestArchive(t)

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestManager_OperationsAfterClose(t *testing.T) {
	m := openTestArchive(t)
	m.Close()

	if err := m.SavePollResult(sampleResult("p1")); err != ErrClosed {
		t.Errorf("Expected ErrClosed on save, got %v", err)
	}
	if err := m.HealthCheck(context.Background()); err != ErrClosed {
		t.Errorf("Expected ErrClosed on health check, got %v", err)
	}
}

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "fresh.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	if err := m.SavePollResult(sampleResult("p1")); err != nil {
		t.Fatalf("SavePollResult on a fresh database failed: %v", err)
	}
}
