package access

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers can map each one to specific
// user-facing behavior.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindForbidden        Kind = "forbidden"
	KindAlreadyManaging  Kind = "already_managing"
	KindNotEligible      Kind = "not_eligible"
	KindAlreadyMember    Kind = "already_member"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindWindowClosed     Kind = "window_closed"
	KindInvalidState     Kind = "invalid_state"
	KindNotFound         Kind = "not_found"
	KindTransient        Kind = "transient"
)

// Error is a typed engine error carrying a Kind. AlreadyMember is an
// idempotent "no action needed" signal rather than a hard failure; callers
// should not treat it as exceptional.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely retry the operation.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// NewError creates a typed error with the given kind.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying error with a kind. Store and communication
// failures are wrapped as KindTransient at the persistence boundary.
func WrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of a typed error, or KindTransient for untyped
// errors (anything untyped reaching a caller is a store/communication
// failure).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsKind reports whether err is a typed error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
