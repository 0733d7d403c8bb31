// File: internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

// Code classifies a protocol-level failure.
type Code string

const (
	// CodeDaemonUnavailable means the automation daemon could not be spawned
	// or reached at its socket endpoint.
	CodeDaemonUnavailable Code = "DAEMON_UNAVAILABLE"
	// CodeNotConnected means a command was attempted before Connect.
	CodeNotConnected Code = "NOT_CONNECTED"
	// CodeConnectionClosed means the daemon closed the socket mid-exchange.
	CodeConnectionClosed Code = "CONNECTION_CLOSED"
	// CodeTimeout means no response arrived within the socket's configured timeout.
	CodeTimeout Code = "TIMEOUT"
	// CodeCommandFailed means the daemon replied success:false; Message
	// carries the daemon-supplied error verbatim.
	CodeCommandFailed Code = "COMMAND_FAILED"
)

// Error is the structured error every protocol failure is raised as.
// Callers surface Code, Message, and Recovery verbatim; retry policy lives
// entirely above this package.
type Error struct {
	Code     Code   `json:"code"`
	Message  string `json:"message"`
	Recovery string `json:"recovery,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewError builds a structured protocol error.
func NewError(code Code, message, recovery string) *Error {
	return &Error{Code: code, Message: message, Recovery: recovery}
}

// IsCode reports whether err is (or wraps) a protocol error with the given code.
func IsCode(err error, code Code) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == code
}
