package broadcast

import (
	"log"

	"pollboard/pkg/types"
)

// ConnectionSource enumerates the currently connected transport sessions.
// Membership is queried at call time on every broadcast, so the gateway
// never holds its own view of who is connected.
type ConnectionSource interface {
	All() []types.TransportSession
	ByRole(role string) []types.TransportSession
}

// Gateway is the only component that notifies participants of state
// changes. Delivery is best-effort and fire-and-forget: failures are logged
// and never reported back to the caller, and nothing is buffered for
// disconnected participants. Each connection's writer preserves send order,
// so events of the same type arrive FIFO per participant.
type Gateway struct {
	source ConnectionSource
}

// NewGateway creates a gateway over the given connection source.
func NewGateway(source ConnectionSource) *Gateway {
	return &Gateway{source: source}
}

// All delivers an event to every connected participant regardless of role.
func (g *Gateway) All(event string, payload interface{}) {
	g.deliver(g.source.All(), event, payload)
}

// To delivers an event to every connected participant with the given role.
func (g *Gateway) To(role, event string, payload interface{}) {
	g.deliver(g.source.ByRole(role), event, payload)
}

func (g *Gateway) deliver(sessions []types.TransportSession, event string, payload interface{}) {
	envelope := types.Envelope{Type: event, Payload: payload}
	for _, session := range sessions {
		if err := session.WriteJSON(envelope); err != nil {
			log.Printf("Broadcast %s delivery failed: %v", event, err)
		}
	}
}
