package poll

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"pollboard/internal/broadcast"
	"pollboard/internal/store"
	"pollboard/pkg/types"
)

// DefaultGraceDelay is the wait after full participation before the poll
// auto-ends, long enough for the final tally to render on clients.
const DefaultGraceDelay = time.Second

// Archiver records ended polls for later reference. Failures are logged and
// never affect session state; a nil Archiver disables archival.
type Archiver interface {
	SavePollResult(result *types.PollResult) error
}

// Manager owns the poll state machine: Idle (no active poll), Running
// (poll active, countdown armed), back to Idle. It decides when a poll ends
// (explicit end, timeout, or full participation) and guarantees the ended
// broadcast fires exactly once. Every transition and timer callback
// serializes on the manager mutex, so a timer racing a manual end is always
// a guarded no-op on the losing side.
type Manager struct {
	store      *store.Store
	aggregator *Aggregator
	gateway    *broadcast.Gateway
	archiver   Archiver
	graceDelay time.Duration

	mu         sync.Mutex
	deadline   time.Time
	stopTick   chan struct{} // closed when the countdown must stop
	graceTimer *time.Timer
	graceArmed bool
}

// NewManager creates the lifecycle manager. archiver may be nil. A
// graceDelay of 0 or less falls back to DefaultGraceDelay.
func NewManager(st *store.Store, gateway *broadcast.Gateway, archiver Archiver, graceDelay time.Duration) *Manager {
	if graceDelay <= 0 {
		graceDelay = DefaultGraceDelay
	}
	return &Manager{
		store:      st,
		aggregator: NewAggregator(st),
		gateway:    gateway,
		archiver:   archiver,
		graceDelay: graceDelay,
	}
}

// Create starts a new poll. Allowed only while idle; returns
// types.ErrPollInFlight while a poll is running and types.ErrInvalidPollSpec
// for a bad question, options, or duration. On success the poll is active,
// the countdown is armed, and poll-created is broadcast to everyone.
func (m *Manager) Create(question string, options []string, maxTime int) (*types.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store.CurrentPoll() != nil {
		return nil, types.ErrPollInFlight
	}
	if err := types.ValidatePollSpec(question, options); err != nil {
		return nil, err
	}
	if maxTime <= 0 {
		return nil, types.ErrInvalidPollSpec
	}

	now := time.Now()
	poll := &types.Poll{
		ID:        uuid.New().String(),
		Question:  question,
		Options:   append([]string(nil), options...),
		MaxTime:   maxTime,
		IsActive:  true,
		CreatedAt: now,
		StartTime: now,
	}
	m.store.SetCurrentPoll(poll, m.aggregator.SeedResult(poll))

	m.deadline = now.Add(time.Duration(maxTime) * time.Second)
	m.stopTick = make(chan struct{})
	m.graceArmed = false
	go m.countdown(poll.ID, m.deadline, m.stopTick)

	m.gateway.All(types.EventPollCreated, poll)
	log.Printf("Poll created: id=%s question=%q maxTime=%ds", poll.ID, poll.Question, poll.MaxTime)
	return poll, nil
}

// SubmitAnswer counts a student's vote against the running poll and
// broadcasts the updated tally. Returns types.ErrUnknownPoll when pollID is
// not the active poll and types.ErrInvalidOption for an unlisted answer.
// Once every present student has a counted response, termination is
// scheduled after the grace delay; a second qualifying vote inside the
// window does not schedule a duplicate.
func (m *Manager) SubmitAnswer(pollID, studentID, studentName, answer string) (*types.PollResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.store.CurrentPoll()
	if current == nil || current.ID != pollID || !current.IsActive {
		return nil, types.ErrUnknownPoll
	}
	if !current.HasOption(answer) {
		return nil, types.ErrInvalidOption
	}

	result, err := m.aggregator.RecordVote(pollID, studentID, studentName, answer)
	if err != nil {
		return nil, err
	}
	m.gateway.All(types.EventPollResults, result)
	log.Printf("Answer submitted: student=%s answer=%q", studentName, answer)

	present := m.store.StudentCount()
	if present > 0 && result.TotalVotes >= present && !m.graceArmed {
		m.graceArmed = true
		m.graceTimer = time.AfterFunc(m.graceDelay, m.End)
		log.Printf("Full participation on poll %s, ending after grace delay", pollID)
	}
	return result, nil
}

// End terminates the running poll: cancels the countdown and any pending
// grace task, stamps the end time, broadcasts poll-ended with the final
// result, and returns to idle. Calling End while idle is a no-op, so the
// duration timer, the grace timer, and a teacher's explicit end can race
// freely: exactly one of them ends the poll.
func (m *Manager) End() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endLocked(time.Now())
}

func (m *Manager) endLocked(endedAt time.Time) {
	if m.store.CurrentPoll() == nil {
		return
	}
	if m.stopTick != nil {
		close(m.stopTick)
		m.stopTick = nil
	}
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
	m.graceArmed = false

	final := m.store.ClearCurrentPoll(endedAt)
	if final == nil {
		return
	}
	m.gateway.All(types.EventPollEnded, final)
	log.Printf("Poll ended: id=%s totalVotes=%d", final.PollID, final.TotalVotes)

	if m.archiver != nil {
		if err := m.archiver.SavePollResult(final); err != nil {
			log.Printf("Failed to archive poll %s: %v", final.PollID, err)
		}
	}
}

// TimeRemaining returns the whole seconds left on the running poll. The
// second return is false while idle.
func (m *Manager) TimeRemaining() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store.CurrentPoll() == nil {
		return 0, false
	}
	return remainingSeconds(m.deadline), true
}

// countdown broadcasts time-update once per second until the deadline or a
// manual end. Remaining seconds are rounded so the value reaches exactly 0
// at expiry, at which point poll-timeout carries the final result before
// the shared termination path broadcasts poll-ended.
func (m *Manager) countdown(pollID string, deadline time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := remainingSeconds(deadline)
			m.gateway.All(types.EventTimeUpdate, remaining)
			if remaining <= 0 {
				m.timeout(pollID)
				return
			}
		}
	}
}

// timeout ends the poll because its duration elapsed. A stale fire after a
// manual end finds a different (or no) active poll and does nothing.
func (m *Manager) timeout(pollID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.store.CurrentPoll()
	if current == nil || current.ID != pollID {
		return
	}
	if final := m.store.ResultSnapshot(pollID); final != nil {
		m.gateway.All(types.EventPollTimeout, final)
	}
	log.Printf("Poll timed out: id=%s", pollID)
	m.endLocked(time.Now())
}

func remainingSeconds(deadline time.Time) int {
	remaining := int(math.Round(time.Until(deadline).Seconds()))
	if remaining < 0 {
		return 0
	}
	return remaining
}
