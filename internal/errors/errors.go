// ABOUTME: Typed error kinds for upstream, dialog and storage failures
// ABOUTME: Error wraps a cause with a kind and operation so callers can branch on it

package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindTransport        Kind = "TRANSPORT"         // network failure or unexpected status
	KindUpstreamRejected Kind = "UPSTREAM_REJECTED" // explicit FAIL result or blocked client
	KindDecode           Kind = "DECODE"            // response shape did not match
	KindPollExhausted    Kind = "POLL_EXHAUSTED"    // job never left the pending state
	KindInvalidInput     Kind = "INVALID_INPUT"     // user sent something we cannot use
	KindNotFound         Kind = "NOT_FOUND"         // nothing matched the request
	KindStorage          Kind = "STORAGE"           // persistence collaborator failed
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the upstream client may retry this failure
// against its retry budget.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstreamRejected
}

// New creates an Error without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap creates an Error around cause. A nil cause still yields an error.
func Wrap(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

// Transport reports a network failure or unexpected HTTP status.
func Transport(op string, cause error) *Error {
	return Wrap(KindTransport, op, "upstream unreachable", cause)
}

// Rejected reports an explicit upstream refusal.
func Rejected(op, msg string) *Error {
	return New(KindUpstreamRejected, op, msg)
}

// Decode reports a response that did not match the expected shape.
func Decode(op string, cause error) *Error {
	return Wrap(KindDecode, op, "unexpected response shape", cause)
}

// InvalidInput reports user input that cannot be used in the current step.
func InvalidInput(msg string) *Error {
	return New(KindInvalidInput, "", msg)
}

// NotFound reports an empty result for a well-formed request.
func NotFound(msg string) *Error {
	return New(KindNotFound, "", msg)
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
