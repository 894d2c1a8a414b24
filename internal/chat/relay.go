package chat

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"pollboard/internal/broadcast"
	"pollboard/internal/store"
	"pollboard/pkg/types"
)

// Relay appends messages to the bounded session chat log and rebroadcasts
// them. It is independent of poll state.
type Relay struct {
	store   *store.Store
	gateway *broadcast.Gateway
}

// NewRelay creates a chat relay over the session store.
func NewRelay(st *store.Store, gateway *broadcast.Gateway) *Relay {
	return &Relay{store: st, gateway: gateway}
}

// Send appends a timestamped, identity-stamped message and broadcasts it to
// all participants. Returns types.ErrEmptyMessage when text is blank after
// trimming. The stored log keeps only the most recent entries; a
// participant connecting later receives the retained log via History.
func (r *Relay) Send(text, sender, senderType string) (*types.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyMessage
	}
	msg := types.ChatMessage{
		ID:         uuid.New().String(),
		Sender:     sender,
		SenderType: senderType,
		Message:    text,
		Timestamp:  time.Now(),
	}
	r.store.AppendChat(msg)
	r.gateway.All(types.EventMessageReceived, msg)
	log.Printf("Message sent: %s -> %q", sender, text)
	return &msg, nil
}

// History returns the retained chat log, oldest first, for the one-time
// replay given to a newly connecting participant.
func (r *Relay) History() []types.ChatMessage {
	return r.store.ChatHistory()
}
