package types

import (
	"time"
)

// Participant roles. The role is asserted by the client at join time and
// attached to the connection; the core never authenticates it.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Inbound event types consumed by the hub.
const (
	EventJoinTeacher  = "join-teacher"
	EventJoinStudent  = "join-student"
	EventCreatePoll   = "create-poll"
	EventSubmitAnswer = "submit-answer"
	EventEndPoll      = "end-poll"
	EventKickStudent  = "kick-student"
	EventSendMessage  = "send-message"
)

// Outbound event types produced by the core.
const (
	EventPollCreated     = "poll-created"
	EventPollResults     = "poll-results"
	EventPollEnded       = "poll-ended"
	EventPollTimeout     = "poll-timeout"
	EventTimeUpdate      = "time-update"
	EventStudentsUpdated = "students-updated"
	EventMessageReceived = "message-received"
	EventChatHistory     = "chat-history"
	EventKicked          = "kicked"
)

// TransportSession is the opaque handle the core holds for a connected
// participant. It is used only to target delivery and disconnection; the
// core never interprets it.
type TransportSession interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Poll is a question with fixed options open for voting for a bounded
// duration. At most one Poll has IsActive=true at any time.
type Poll struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Options   []string   `json:"options"`
	MaxTime   int        `json:"maxTime"` // seconds
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// PollResponse is one student's counted answer. At most one per student id
// per poll; a revote overwrites Answer and Timestamp in place.
type PollResponse struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Answer      string    `json:"answer"`
	Timestamp   time.Time `json:"timestamp"`
}

// PollResult carries the live tally for a poll. Question and options are
// frozen copies taken at poll creation. Invariants: every option is
// pre-seeded in Votes, the sum of Votes equals TotalVotes, and TotalVotes
// equals len(Responses).
type PollResult struct {
	PollID     string         `json:"pollId"`
	Question   string         `json:"question"`
	Options    []string       `json:"options"`
	Votes      map[string]int `json:"votes"`
	TotalVotes int            `json:"totalVotes"`
	Responses  []PollResponse `json:"responses"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Clone returns a deep copy safe to serialize while the original keeps
// mutating under the store lock.
func (r *PollResult) Clone() *PollResult {
	if r == nil {
		return nil
	}
	c := &PollResult{
		PollID:     r.PollID,
		Question:   r.Question,
		Options:    append([]string(nil), r.Options...),
		Votes:      make(map[string]int, len(r.Votes)),
		TotalVotes: r.TotalVotes,
		Responses:  append([]PollResponse(nil), r.Responses...),
		CreatedAt:  r.CreatedAt,
	}
	for opt, n := range r.Votes {
		c.Votes[opt] = n
	}
	return c
}

// Student is a present participant. Session is the transport handle used to
// deliver the targeted kick notification and sever the connection.
type Student struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	IsOnline bool             `json:"isOnline"`
	JoinedAt time.Time        `json:"joinedAt"`
	Session  TransportSession `json:"-"`
}

// ChatMessage is one entry in the bounded session chat log.
type ChatMessage struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	SenderType string    `json:"senderType"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
