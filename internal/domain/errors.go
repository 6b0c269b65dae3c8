package domain

import (
	"errors"
	"fmt"
)

// Code categorizes a failure so callers can tell caller-fault from
// dependency-fault.
type Code string

const (
	// CodeBadInput: missing/invalid fields, correctable by the caller.
	CodeBadInput Code = "bad_input"

	// CodeNotFound: the entity, or an entity it references, does not exist
	// locally or on the peer.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized: bad or missing credential.
	CodeUnauthorized Code = "unauthorized"

	// CodeLocalPersistence: the local store rejected the write. Propagation
	// was never attempted.
	CodeLocalPersistence Code = "local_persistence_failure"

	// CodeUpstreamUnavailable: the peer was unreachable, timed out, exhausted
	// retries or answered 5xx. The local write is already committed.
	CodeUpstreamUnavailable Code = "upstream_unavailable"

	// CodeInjectedFailure: synthetic failure from the fault injector. The
	// local write is already committed.
	CodeInjectedFailure Code = "injected_failure"

	// CodeInternal is reported for errors that carry no domain code.
	CodeInternal Code = "internal"
)

// Error is the error type returned by services and replicators.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description, safe to return to callers.
	Message string

	// EntityID is the external identifier involved, if any.
	EntityID string

	// Err is the underlying cause (optional, never shown to callers).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntityID != "" {
		msg = fmt.Sprintf("%s (id=%s)", msg, e.EntityID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the Code of the first *Error in err's chain, or
// CodeInternal if there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// NewBadInput creates a BadInput error.
func NewBadInput(format string, args ...any) *Error {
	return &Error{Code: CodeBadInput, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a NotFound error for the given entity kind and id.
func NewNotFound(entity, externalID string) *Error {
	return &Error{
		Code:     CodeNotFound,
		Message:  entity + " not found",
		EntityID: externalID,
	}
}

// NewUnauthorized creates an Unauthorized error.
func NewUnauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "Invalid or missing token"}
}

// NewLocalPersistence wraps a store failure.
func NewLocalPersistence(op string, err error) *Error {
	return &Error{
		Code:    CodeLocalPersistence,
		Message: op + " failed",
		Err:     err,
	}
}

// NewUpstreamUnavailable wraps a peer failure that happened after the local
// write committed.
func NewUpstreamUnavailable(message, externalID string, err error) *Error {
	return &Error{
		Code:     CodeUpstreamUnavailable,
		Message:  message,
		EntityID: externalID,
		Err:      err,
	}
}

// NewInjectedFailure creates the synthetic failure raised by the fault injector.
func NewInjectedFailure(externalID string) *Error {
	return &Error{
		Code:     CodeInjectedFailure,
		Message:  "unprocessable entity",
		EntityID: externalID,
	}
}
