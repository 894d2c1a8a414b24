package types

import "errors"

// Domain error kinds. All are local validation failures: they never cause
// partial mutation of session state and are swallowed (logged only) at the
// transport boundary.
var (
	ErrInvalidPollSpec = errors.New("poll needs a non-empty question and at least 2 distinct non-empty options")
	ErrPollInFlight    = errors.New("a poll is already running")
	ErrUnknownPoll     = errors.New("vote references a poll that is not current")
	ErrInvalidOption   = errors.New("vote for an option the poll does not have")
	ErrEmptyMessage    = errors.New("chat message is blank")
)
