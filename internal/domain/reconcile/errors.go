package reconcile

import (
	"errors"
	"fmt"
)

// Kind classifies errors surfaced to callers of refresh and mutation
// operations.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuthentication covers missing or expired credentials. Never retried.
	KindAuthentication
	// KindTransport covers failures before a remote response was received.
	KindTransport
	// KindValidation is raised locally, before any network round trip.
	KindValidation
	// KindRemoteRejected wraps a 4xx or 5xx response of the remote service.
	KindRemoteRejected
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindRemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

// Error is the structured error carried by a failed Result.
type Error struct {
	Kind    Kind
	Op      string
	Status  int    // HTTP status for remote rejections
	Code    string // remote error code, if any
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Status != 0 && e.Code != "":
		return fmt.Sprintf("%s: %s (status %d, code %s): %s", e.Op, e.Kind, e.Status, e.Code, msg)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, msg)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ValidationError wraps err as a KindValidation error for op.
func ValidationError(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}
