package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an engine.Error, matching spec.md §7's taxonomy.
type ErrorKind string

const (
	// ErrUnknownThread: a thread ID in a request does not match any
	// controller the coordinator currently tracks.
	ErrUnknownThread ErrorKind = "UNKNOWN_THREAD"

	// ErrNotSuspended: an operation that requires a paused thread
	// (get_stack, evaluate, execute, a stepping command) was issued
	// against a thread that is running or already terminated.
	ErrNotSuspended ErrorKind = "NOT_SUSPENDED"

	// ErrInvalidArgument: malformed input reached the engine boundary
	// (empty path, non-positive line number, malformed RPC params).
	ErrInvalidArgument ErrorKind = "INVALID_ARGUMENT"

	// ErrEvaluationFailure: a frame's evaluator rejected or failed to
	// run an expression or statement.
	ErrEvaluationFailure ErrorKind = "EVALUATION_FAILURE"

	// ErrTransportFailure: the RPC layer could not deliver a request or
	// response (network/encoding failure below the engine boundary).
	ErrTransportFailure ErrorKind = "TRANSPORT_FAILURE"

	// ErrSessionFatal: the coordinator itself is no longer usable.
	ErrSessionFatal ErrorKind = "SESSION_FATAL"
)

// Error is the engine's single exported error type, carrying a machine
// checkable Kind alongside a human message and an optional wrapped cause.
// Grounded on the teacher's tool.ToolError: structured, Unwrap-friendly,
// safe to format directly for a client.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to ErrSessionFatal for anything else so callers always get a taxonomy
// member to map onto a transport status.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ErrSessionFatal
}
