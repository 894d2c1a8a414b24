package broadcast

import (
	"errors"
	"sync"
	"testing"

	"pollboard/pkg/types"
)

type fakeSession struct {
	mu        sync.Mutex
	envelopes []types.Envelope
	writeErr  error
}

func (f *fakeSession) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.envelopes = append(f.envelopes, v.(types.Envelope))
	return nil
}

func (f *fakeSession) Close() error { return nil }

func (f *fakeSession) received() []types.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Envelope(nil), f.envelopes...)
}

type fakeSource struct {
	all    []types.TransportSession
	byRole map[string][]types.TransportSession
}

func (f *fakeSource) All() []types.TransportSession { return f.all }
func (f *fakeSource) ByRole(role string) []types.TransportSession {
	return f.byRole[role]
}

func TestGateway_All(t *testing.T) {
	a, b := &fakeSession{}, &fakeSession{}
	gw := NewGateway(&fakeSource{all: []types.TransportSession{a, b}})

	gw.All(types.EventTimeUpdate, 42)

	for i, s := range []*fakeSession{a, b} {
		got := s.received()
		if len(got) != 1 {
			t.Fatalf("session %d: expected 1 envelope, got %d", i, len(got))
		}
		if got[0].Type != types.EventTimeUpdate || got[0].Payload != 42 {
			t.Errorf("session %d: unexpected envelope %+v", i, got[0])
		}
	}
}

func TestGateway_ToRole(t *testing.T) {
	teacher, student := &fakeSession{}, &fakeSession{}
	gw := NewGateway(&fakeSource{byRole: map[string][]types.TransportSession{
		types.RoleTeacher: {teacher},
		types.RoleStudent: {student},
	}})

	gw.To(types.RoleTeacher, types.EventPollResults, nil)

	if len(teacher.received()) != 1 {
		t.Error("Teacher should receive the role-targeted event")
	}
	if len(student.received()) != 0 {
		t.Error("Student should not receive a teacher-targeted event")
	}
}

func TestGateway_DeliveryContinuesPastFailure(t *testing.T) {
	broken := &fakeSession{writeErr: errors.New("gone")}
	healthy := &fakeSession{}
	gw := NewGateway(&fakeSource{all: []types.TransportSession{broken, healthy}})

	gw.All(types.EventPollEnded, nil)

	if len(healthy.received()) != 1 {
		t.Error("A failed delivery must not stop delivery to later sessions")
	}
}
