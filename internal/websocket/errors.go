package websocket

import "errors"

// Connection-related errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write buffer full, timed out")
	ErrInvalidJSON      = errors.New("invalid JSON data")
)
