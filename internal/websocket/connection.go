package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Connection wraps a WebSocket with a single-writer goroutine so concurrent
// broadcasts never interleave frames. Identity is attached when the client
// sends its join event; until then the connection only receives the chat
// history replay.
type Connection struct {
	conn    *websocket.Conn
	writeCh chan []byte
	ctx     context.Context
	cancel  context.CancelFunc

	mu            sync.RWMutex
	participantID string
	role          string
	displayName   string
	joined        bool

	closeOnce sync.Once
}

// NewConnection wraps conn and starts its writer goroutine. bufferSize is
// the pending-write capacity per participant.
func NewConnection(conn *websocket.Conn, bufferSize int) *Connection {
	if bufferSize < 1 {
		bufferSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:    conn,
		writeCh: make(chan []byte, bufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	go c.writeLoop()
	return c
}

// writeLoop is the only goroutine that writes to the socket, which keeps
// per-connection delivery FIFO. On shutdown it flushes what is already
// queued before closing the socket, so a targeted kicked notification sent
// just before Close still goes out.
func (c *Connection) writeLoop() {
	defer c.conn.Close()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			c.flush()
			return
		}
	}
}

func (c *Connection) flush() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// WriteJSON queues v for delivery. It never blocks past writeWait and never
// reports delivery: a full buffer or closed connection is the caller's only
// failure signal.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeWait):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close stops the writer after flushing queued frames and closes the
// socket. Safe to call more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

// SetIdentity attaches the session context asserted at join time. The
// explicit {id, role, name} record replaces any notion of per-connection
// mutable role state.
func (c *Connection) SetIdentity(participantID, role, displayName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participantID = participantID
	c.role = role
	c.displayName = displayName
	c.joined = true
}

// Joined reports whether a join event has attached an identity.
func (c *Connection) Joined() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joined
}

// ParticipantID returns the joined participant id, or "" before join.
func (c *Connection) ParticipantID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participantID
}

// Role returns the joined role, or "" before join.
func (c *Connection) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// DisplayName returns the joined display name, or "" before join.
func (c *Connection) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayName
}
