package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"pollboard/internal/chat"
	"pollboard/internal/poll"
	"pollboard/internal/presence"
	"pollboard/internal/store"
	"pollboard/pkg/types"
)

// Sender is a connected transport session as the hub sees it: a delivery
// target plus the identity record attached at join time.
type Sender interface {
	types.TransportSession
	SetIdentity(participantID, role, displayName string)
	ParticipantID() string
	Role() string
	DisplayName() string
	Joined() bool
}

// ConnectionRegistry is the transport-side bookkeeping the hub drives on
// join and disconnect.
type ConnectionRegistry interface {
	Register(participantID, role string, session types.TransportSession)
	Unregister(participantID string, session types.TransportSession)
}

// Event is an inbound wire event with its payload still raw; each handler
// decodes only the shape it expects.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type eventContext struct {
	sender Sender
	event  Event
}

// Hub serializes every inbound event onto one run loop, so no two handler
// mutations of session state interleave. Role preconditions are enforced
// here and failures are silently ignored: logged server-side, never
// surfaced to the sender.
type Hub struct {
	events      chan eventContext
	disconnects chan Sender
	shutdown    chan struct{}

	registry ConnectionRegistry
	store    *store.Store
	polls    *poll.Manager
	presence *presence.Registry
	chat     *chat.Relay

	running bool
	mu      sync.RWMutex
}

// NewHub creates a hub over the session components.
func NewHub(registry ConnectionRegistry, st *store.Store, polls *poll.Manager, pres *presence.Registry, relay *chat.Relay) *Hub {
	return &Hub{
		events:      make(chan eventContext, 1000),
		disconnects: make(chan Sender, 100),
		shutdown:    make(chan struct{}),
		registry:    registry,
		store:       st,
		polls:       polls,
		presence:    pres,
		chat:        relay,
	}
}

// Start begins event processing.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting session hub...")
	go h.run(ctx)
	return nil
}

// Stop shuts down event processing.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	return nil
}

// Dispatch queues an inbound event for serialized handling.
func (h *Hub) Dispatch(sender Sender, event Event) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.events <- eventContext{sender: sender, event: event}:
		return nil
	default:
		return ErrEventChannelFull
	}
}

// Disconnected queues transport-session teardown for serialized handling.
func (h *Hub) Disconnected(sender Sender) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.disconnects <- sender:
		return nil
	default:
		return ErrDisconnectChannelFull
	}
}

func (h *Hub) run(ctx context.Context) {
	defer log.Println("Hub processing stopped")

	for {
		select {
		case evt := <-h.events:
			h.handleEvent(evt.sender, evt.event)
		case sender := <-h.disconnects:
			h.handleDisconnect(sender)
		case <-h.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

type joinStudentPayload struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type createPollPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	MaxTime  int      `json:"maxTime"`
}

type submitAnswerPayload struct {
	PollID      string `json:"pollId"`
	Answer      string `json:"answer"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}

type kickStudentPayload struct {
	StudentID string `json:"studentId"`
}

type sendMessagePayload struct {
	Message    string `json:"message"`
	Sender     string `json:"sender"`
	SenderType string `json:"senderType"`
}

// handleEvent dispatches one inbound event. Handler errors never escape the
// run loop; a failed precondition or validation is logged and dropped.
func (h *Hub) handleEvent(sender Sender, event Event) {
	switch event.Type {
	case types.EventJoinTeacher:
		h.joinTeacher(sender)
	case types.EventJoinStudent:
		h.joinStudent(sender, event.Payload)
	case types.EventCreatePoll:
		h.createPoll(sender, event.Payload)
	case types.EventSubmitAnswer:
		h.submitAnswer(sender, event.Payload)
	case types.EventEndPoll:
		if sender.Role() != types.RoleTeacher {
			return
		}
		h.polls.End()
	case types.EventKickStudent:
		h.kickStudent(sender, event.Payload)
	case types.EventSendMessage:
		h.sendMessage(sender, event.Payload)
	default:
		log.Printf("Ignoring unknown event type %q", event.Type)
	}
}

// joinTeacher attaches the teacher identity and replays current session
// state: the active poll if any, the roster, and the full result history.
func (h *Hub) joinTeacher(sender Sender) {
	sender.SetIdentity(uuid.New().String(), types.RoleTeacher, "Teacher")
	h.registry.Register(sender.ParticipantID(), types.RoleTeacher, sender)
	log.Printf("Teacher joined: id=%s", sender.ParticipantID())

	if current := h.store.CurrentPoll(); current != nil {
		h.send(sender, types.EventPollCreated, current)
	}
	h.send(sender, types.EventStudentsUpdated, h.store.Roster())
	h.send(sender, types.EventPollResults, h.store.Results())
}

// joinStudent attaches the student identity, adds them to the roster
// (which broadcasts it), and replays the active poll, the countdown, and
// the result history to the new arrival.
func (h *Hub) joinStudent(sender Sender, raw json.RawMessage) {
	var p joinStudentPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" || p.Name == "" {
		log.Printf("Ignoring malformed join-student payload: %v", err)
		return
	}
	sender.SetIdentity(p.ID, types.RoleStudent, p.Name)
	h.registry.Register(p.ID, types.RoleStudent, sender)
	h.presence.Join(p.ID, p.Name, sender)

	if current := h.store.CurrentPoll(); current != nil {
		h.send(sender, types.EventPollCreated, current)
		if remaining, ok := h.polls.TimeRemaining(); ok {
			h.send(sender, types.EventTimeUpdate, remaining)
		}
	}
	if h.store.ResultCount() > 0 {
		h.send(sender, types.EventPollResults, h.store.Results())
	}
}

func (h *Hub) createPoll(sender Sender, raw json.RawMessage) {
	if sender.Role() != types.RoleTeacher {
		return
	}
	var p createPollPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Ignoring malformed create-poll payload: %v", err)
		return
	}
	if _, err := h.polls.Create(p.Question, p.Options, p.MaxTime); err != nil {
		log.Printf("create-poll rejected: %v", err)
	}
}

func (h *Hub) submitAnswer(sender Sender, raw json.RawMessage) {
	if sender.Role() != types.RoleStudent {
		return
	}
	var p submitAnswerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Ignoring malformed submit-answer payload: %v", err)
		return
	}
	if _, err := h.polls.SubmitAnswer(p.PollID, p.StudentID, p.StudentName, p.Answer); err != nil {
		log.Printf("submit-answer rejected: %v", err)
	}
}

func (h *Hub) kickStudent(sender Sender, raw json.RawMessage) {
	if sender.Role() != types.RoleTeacher {
		return
	}
	var p kickStudentPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.StudentID == "" {
		log.Printf("Ignoring malformed kick-student payload: %v", err)
		return
	}
	h.presence.Kick(p.StudentID)
}

func (h *Hub) sendMessage(sender Sender, raw json.RawMessage) {
	if !sender.Joined() {
		return
	}
	var p sendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("Ignoring malformed send-message payload: %v", err)
		return
	}
	if !types.IsValidRole(p.SenderType) {
		log.Printf("Ignoring send-message with unknown sender type %q", p.SenderType)
		return
	}
	if _, err := h.chat.Send(p.Message, p.Sender, p.SenderType); err != nil {
		log.Printf("send-message rejected: %v", err)
	}
}

// handleDisconnect tears down a closed transport session. The departing
// sender is passed through so presence and the registry can ignore stale
// teardown from a connection that a reconnect already replaced. A kicked
// student was already removed from the roster, so the presence call is a
// quiet no-op on that path.
func (h *Hub) handleDisconnect(sender Sender) {
	if !sender.Joined() {
		return
	}
	if sender.Role() == types.RoleStudent {
		h.presence.Leave(sender.ParticipantID(), sender)
	}
	h.registry.Unregister(sender.ParticipantID(), sender)
	log.Printf("Participant disconnected: id=%s role=%s", sender.ParticipantID(), sender.Role())
}

func (h *Hub) send(sender Sender, event string, payload interface{}) {
	if err := sender.WriteJSON(types.Envelope{Type: event, Payload: payload}); err != nil {
		log.Printf("Failed to send %s to %s: %v", event, sender.ParticipantID(), err)
	}
}
