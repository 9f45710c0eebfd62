package draftstore

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetworkFailure   Kind = "NetworkFailure"
	KindTimeout          Kind = "Timeout"
	KindRemoteRejected   Kind = "RemoteRejected"
	KindMalformedPayload Kind = "MalformedPayload"
)

var (
	ErrNetworkFailure   = errors.New("draft store unreachable")
	ErrTimeout          = errors.New("draft store call timed out")
	ErrRemoteRejected   = errors.New("draft store rejected the request")
	ErrMalformedPayload = errors.New("draft store returned a malformed body")
)

// Error describes a failed store call. Status and Body are set for RemoteRejected.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRemoteRejected:
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetworkFailure:
		return e.Kind == KindNetworkFailure
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrRemoteRejected:
		return e.Kind == KindRemoteRejected
	case ErrMalformedPayload:
		return e.Kind == KindMalformedPayload
	}
	return false
}

// KindOf reports the failure kind of err, or "" when err is not a store error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
