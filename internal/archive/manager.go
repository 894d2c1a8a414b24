package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pollboard/pkg/types"
)

// ErrClosed is returned for operations on a closed manager.
var ErrClosed = errors.New("archive is closed")

// Manager records ended polls in SQLite. All writes funnel through a single
// writer goroutine; SQLite serializes writers anyway, and one writer keeps
// busy-timeout churn out of the session path.
type Manager struct {
	db       *sql.DB
	writeCh  chan writeOperation
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Manager, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply archive schema: %w", err)
	}

	m := &Manager{
		db:       db,
		writeCh:  make(chan writeOperation, 100),
		shutdown: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.writeLoop()
	return m, nil
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()
	for {
		select {
		case op := <-m.writeCh:
			op.result <- op.operation(m.db)
		case <-m.shutdown:
			return
		}
	}
}

func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case m.writeCh <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-m.shutdown:
		return ErrClosed
	}
}

// SavePollResult archives the final result of an ended poll.
func (m *Manager) SavePollResult(result *types.PollResult) error {
	options, err := json.Marshal(result.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	votes, err := json.Marshal(result.Votes)
	if err != nil {
		return fmt.Errorf("failed to encode votes: %w", err)
	}
	responses, err := json.Marshal(result.Responses)
	if err != nil {
		return fmt.Errorf("failed to encode responses: %w", err)
	}

	return m.executeWrite(func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT OR REPLACE INTO poll_archive
				(poll_id, question, options, votes, total_votes, responses, created_at, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			result.PollID, result.Question, string(options), string(votes),
			result.TotalVotes, string(responses), result.CreatedAt, time.Now())
		return err
	})
}

// PollCount returns the number of archived polls.
func (m *Manager) PollCount(ctx context.Context) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM poll_archive").Scan(&count)
	return count, err
}

// HealthCheck verifies archive connectivity.
func (m *Manager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	m.mu.RUnlock()
	return m.db.PingContext(ctx)
}

// Close stops the writer and closes the database. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		log.Printf("Failed to close archive database: %v", err)
		return err
	}
	return nil
}
