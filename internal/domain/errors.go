package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures that are reported back to the caller
type Kind int

// Failure kinds
const (
	KindValidation   Kind = iota + 1 // Malformed or missing input
	KindUnauthorized                 // Bad or missing credentials or token
	KindForbidden                    // Authenticated but not allowed
	KindNotFound                     // Missing entity
	KindConflict                     // Uniqueness violation
)

// String returns a short name for the kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a failure with a human-readable message safe to show to end users
type Error struct {
	Kind    Kind   // Failure class
	Message string // Message displayed verbatim by the client
}

func (e *Error) Error() string {
	return e.Message
}

// Validation builds a KindValidation error
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a KindUnauthorized error
func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a KindForbidden error
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or 0 when err is not a domain error
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// IsKind reports whether err is a domain error of kind k
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
