package client

import (
	"encoding/json"
	"fmt"
)

// State error codes for preconditions checked before touching the server.
const (
	CodeInvalidState      = "INVALID_STATE"
	CodeReaderAlreadyOpen = "READER_ALREADY_OPEN"
	CodeTextNotSet        = "COMMAND_TEXT_NOT_SET"
)

// StateError represents an operation attempted against a connection or
// command in the wrong state.
type StateError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if len(e.Details) > 0 {
		b, _ := json.Marshal(e.Details)
		return fmt.Sprintf("%s: %s (details: %s)", e.Code, e.Message, string(b))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// errInvalidConnectionState creates a StateError for a missing or unusable
// connection.
func errInvalidConnectionState(state ConnectionState) *StateError {
	return &StateError{
		Code:    CodeInvalidState,
		Message: "connection must be valid and open to execute a command",
		Details: map[string]interface{}{
			"currentState": state.String(),
		},
	}
}

// errNoConnection creates a StateError for a command without a connection.
func errNoConnection() *StateError {
	return &StateError{
		Code:    CodeInvalidState,
		Message: "command has no associated connection",
	}
}

// errReaderAlreadyOpen creates a StateError for the single-result-stream
// invariant.
func errReaderAlreadyOpen() *StateError {
	return &StateError{
		Code:    CodeReaderAlreadyOpen,
		Message: "there is already an open result stream associated with this connection which must be closed first",
	}
}

// errCommandTextNotSet creates a StateError for empty command text.
func errCommandTextNotSet() *StateError {
	return &StateError{
		Code:    CodeTextNotSet,
		Message: "command text must be set before execution",
	}
}

// ArgumentError represents an invalid argument rejected eagerly, before any
// server interaction.
type ArgumentError struct {
	Name    string
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Message)
}

// ReplicationError represents a non-read-only statement attempted against a
// connection enforcing replica read-only semantics.
type ReplicationError struct {
	Text string
}

// Error implements the error interface.
func (e *ReplicationError) Error() string {
	return fmt.Sprintf("replicated connections allow only read-only statements: %q", e.Text)
}

// TimeoutError represents an execution whose timeout guard elapsed. The
// connection has already been instructed to handle the timeout before this
// error reaches the caller.
type TimeoutError struct {
	Seconds int
	Cause   error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out after %d seconds", e.Seconds)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// FatalExecutionError wraps a failure after which the connection can no
// longer be trusted: transport-level failures, unrecognized server error
// codes, and failures during recovery itself.
type FatalExecutionError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *FatalExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %s)", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *FatalExecutionError) Unwrap() error {
	return e.Cause
}
