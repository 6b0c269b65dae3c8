package peer

import (
	"fmt"
	"net/http"

	"github.com/roach88/peersync/internal/domain"
)

// Error is the result of a failed peer call.
type Error struct {
	// Op names the logical operation, e.g. "create user".
	Op string

	Method string
	Path   string

	// Status is the HTTP status of the last response, 0 if none arrived.
	Status int

	// Attempts is the number of attempts made.
	Attempts int

	// Message is the peer's error message, if its body carried one.
	Message string

	// Err is the transport error of the last attempt, if any.
	Err error

	// EarlierTransient is set when an earlier attempt of the same call
	// failed transiently. The peer may then have applied the request
	// already, so a later 4xx is not evidence of a bad payload.
	EarlierTransient bool

	// permanent marks failures that occur before anything is sent.
	permanent bool
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("peer %s: %s %s", e.Op, e.Method, e.Path)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retriable reports whether the failure is transient: no response at all
// or a 5xx.
func (e *Error) Retriable() bool {
	if e.permanent {
		return false
	}
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}

// ClientFault reports whether the peer rejected the request itself (4xx).
func (e *Error) ClientFault() bool {
	return e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError
}

// Category maps the failure onto the domain error taxonomy.
func (e *Error) Category() domain.Code {
	switch {
	case e.EarlierTransient:
		return domain.CodeUpstreamUnavailable
	case e.Status == http.StatusNotFound:
		return domain.CodeNotFound
	case e.ClientFault():
		return domain.CodeBadInput
	default:
		return domain.CodeUpstreamUnavailable
	}
}
