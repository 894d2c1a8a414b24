package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pollboard/internal/chat"
	"pollboard/internal/hub"
	"pollboard/pkg/types"
)

var upgrader = websocket.Upgrader{
	// The session asserts identity via join events, not the origin; any
	// classroom client may connect.
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades HTTP requests to session connections, replays the chat
// history to each new arrival, and pumps inbound events into the hub.
type Handler struct {
	hub          *hub.Hub
	chat         *chat.Relay
	bufferSize   int
	pingInterval time.Duration
	readTimeout  time.Duration
}

// NewHandler creates the WebSocket handler.
func NewHandler(h *hub.Hub, relay *chat.Relay, bufferSize int, pingInterval, readTimeout time.Duration) *Handler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	return &Handler{
		hub:          h,
		chat:         relay,
		bufferSize:   bufferSize,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
	}
}

// HandleWebSocket serves the /ws endpoint. Every new connection receives
// the retained chat log as a one-time replay before any events flow.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, h.bufferSize)
	log.Printf("Participant connected from %s", r.RemoteAddr)

	if err := wsConn.WriteJSON(types.Envelope{Type: types.EventChatHistory, Payload: h.chat.History()}); err != nil {
		log.Printf("Failed to replay chat history: %v", err)
	}

	go h.handleConnection(wsConn)
}

// handleConnection runs the read pump with ping/pong heartbeat monitoring
// and hands teardown to the hub when the peer goes away.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		if err := h.hub.Disconnected(conn); err != nil {
			log.Printf("Failed to queue disconnect: %v", err)
		}
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event hub.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Ignoring malformed frame from %s: %v", conn.ParticipantID(), err)
			continue
		}
		if err := h.hub.Dispatch(conn, event); err != nil {
			log.Printf("Failed to dispatch %s: %v", event.Type, err)
		}
	}
}
