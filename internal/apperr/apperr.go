package apperr

import "errors"

// Kind classifies an application error independently of the transport
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindRejected      Kind = "rejected"
	KindInvalidStatus Kind = "invalid_status"
	KindInvalidInput  Kind = "invalid_input"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindInternal      Kind = "internal"
)

// Error is a failure with a stable kind and a message safe to show to the caller
type Error struct {
	Kind    Kind
	Message string
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err. Errors without a kind
// get a generic message so internal details do not leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
