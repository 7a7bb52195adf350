// Package failure defines the typed failures returned by the gig core.
//
// Every failure carries a Kind telling the caller whether to retry (unavailable),
// correct the request (validation), stop (unauthorized, unauthenticated) or
// re-fetch state and decide again (conflict, not_found).
package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation_failed"
	KindUnauthenticated Kind = "unauthenticated"
	KindUnauthorized    Kind = "unauthorized"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindUnavailable     Kind = "store_unavailable"
)

// Error is a typed failure. Two Errors match under errors.Is when their codes match.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may safely repeat the operation.
func (e *Error) Retryable() bool { return e.Kind == KindUnavailable }

var (
	ErrValidation         = &Error{Kind: KindValidation, Code: "validation_failed", Msg: "validation failed"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Code: "unauthenticated", Msg: "unauthenticated"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Code: "unauthorized", Msg: "not permitted"}
	ErrNotFound           = &Error{Kind: KindNotFound, Code: "not_found", Msg: "not found"}
	ErrAlreadySubmitted   = &Error{Kind: KindConflict, Code: "already_submitted", Msg: "contributor already submitted to this gig"}
	ErrAlreadyAnnounced   = &Error{Kind: KindConflict, Code: "already_announced", Msg: "winners already announced"}
	ErrBreakdownMismatch  = &Error{Kind: KindConflict, Code: "breakdown_mismatch", Msg: "prize does not match the advertised breakdown"}
	ErrUnknownContributor = &Error{Kind: KindConflict, Code: "unknown_contributor", Msg: "contributor has no submission for this gig"}
	ErrGigClosed          = &Error{Kind: KindConflict, Code: "gig_closed", Msg: "gig no longer accepts submissions"}
	ErrGigLocked          = &Error{Kind: KindConflict, Code: "gig_locked", Msg: "gig can no longer be amended"}
	ErrStoreUnavailable   = &Error{Kind: KindUnavailable, Code: "store_unavailable", Msg: "record store unavailable"}
)

// Wrap returns a copy of sentinel carrying a detail message.
func Wrap(sentinel *Error, format string, args ...any) *Error {
	return &Error{
		Kind: sentinel.Kind,
		Code: sentinel.Code,
		Msg:  sentinel.Msg + ": " + fmt.Sprintf(format, args...),
	}
}

// Unavailable marks an infrastructure error as a transient store failure.
func Unavailable(err error) *Error {
	return &Error{Kind: ErrStoreUnavailable.Kind, Code: ErrStoreUnavailable.Code, Msg: ErrStoreUnavailable.Msg, Err: err}
}

// KindOf returns the failure kind of err, or "" when err is not a typed failure.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// As extracts the typed failure from err.
func As(err error) (*Error, bool) {
	var fe *Error
	ok := errors.As(err, &fe)
	return fe, ok
}
