package websocket

import (
	"log"
	"sync"

	"pollboard/pkg/types"
)

type entry struct {
	role    string
	session types.TransportSession
}

// Registry tracks connected transport sessions keyed by participant id,
// with role-filtered lookup for the broadcast gateway. Pure connection
// bookkeeping; no session-state logic lives here.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register tracks session under participantID. An existing session for the
// same id is replaced and closed asynchronously, so a reconnect takes over
// immediately without deadlocking on the old writer.
func (r *Registry) Register(participantID, role string, session types.TransportSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.entries[participantID]; exists && old.session != session {
		go func() {
			if err := old.session.Close(); err != nil {
				log.Printf("Failed to close replaced session for %s: %v", participantID, err)
			}
		}()
	}
	r.entries[participantID] = entry{role: role, session: session}
}

// Unregister removes the tracked session for participantID, but only when
// it is the same session instance; a stale cleanup must not evict a newer
// reconnect. Idempotent.
func (r *Registry) Unregister(participantID string, session types.TransportSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.entries[participantID]
	if !exists || current.session != session {
		return
	}
	delete(r.entries, participantID)
}

// All returns every connected session.
func (r *Registry) All() []types.TransportSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]types.TransportSession, 0, len(r.entries))
	for _, e := range r.entries {
		sessions = append(sessions, e.session)
	}
	return sessions
}

// ByRole returns every connected session with the given role.
func (r *Registry) ByRole(role string) []types.TransportSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []types.TransportSession
	for _, e := range r.entries {
		if e.role == role {
			sessions = append(sessions, e.session)
		}
	}
	return sessions
}

// Stats returns connection counts for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[string]int{"total": len(r.entries), "teachers": 0, "students": 0}
	for _, e := range r.entries {
		switch e.role {
		case types.RoleTeacher:
			stats["teachers"]++
		case types.RoleStudent:
			stats["students"]++
		}
	}
	return stats
}
