package presence

import (
	"log"
	"time"

	"pollboard/internal/broadcast"
	"pollboard/internal/store"
	"pollboard/pkg/types"
)

// Registry tracks which students are present. Every change broadcasts the
// full roster as a replace-whole-list update; consumers never see diffs.
type Registry struct {
	store   *store.Store
	gateway *broadcast.Gateway
}

// NewRegistry creates a presence registry over the session store.
func NewRegistry(st *store.Store, gateway *broadcast.Gateway) *Registry {
	return &Registry{store: st, gateway: gateway}
}

// Join inserts or overwrites the student keyed by id, so a reconnect with
// the same id never duplicates the entry. JoinedAt is overwritten on
// re-join. session is the transport handle later used to target removal.
func (r *Registry) Join(id, name string, session types.TransportSession) *types.Student {
	student := &types.Student{
		ID:       id,
		Name:     name,
		IsOnline: true,
		JoinedAt: time.Now(),
		Session:  session,
	}
	r.store.UpsertStudent(student)
	log.Printf("Student joined: name=%s id=%s", name, id)
	r.broadcastRoster()
	return student
}

// Leave removes a disconnected student and broadcasts the updated roster.
// Removal happens only when the stored transport handle is session: when a
// reconnect has already replaced the handle, the old connection's teardown
// must not evict the student. Unknown ids are a quiet no-op, which also
// covers the disconnect that follows a kick.
func (r *Registry) Leave(id string, session types.TransportSession) {
	student := r.store.RemoveStudentIfSession(id, session)
	if student == nil {
		return
	}
	log.Printf("Student left: name=%s id=%s", student.Name, student.ID)
	r.broadcastRoster()
}

// Kick forcibly removes a student: the stored transport session receives a
// targeted kicked notification and is severed before the roster broadcast,
// so the participant learns of the removal exactly once.
func (r *Registry) Kick(id string) {
	student := r.store.RemoveStudent(id)
	if student == nil {
		return
	}
	if student.Session != nil {
		if err := student.Session.WriteJSON(types.Envelope{Type: types.EventKicked}); err != nil {
			log.Printf("Failed to notify kicked student %s: %v", student.ID, err)
		}
		if err := student.Session.Close(); err != nil {
			log.Printf("Failed to close session of kicked student %s: %v", student.ID, err)
		}
	}
	log.Printf("Student kicked: name=%s id=%s", student.Name, student.ID)
	r.broadcastRoster()
}

func (r *Registry) broadcastRoster() {
	r.gateway.All(types.EventStudentsUpdated, r.store.Roster())
}
