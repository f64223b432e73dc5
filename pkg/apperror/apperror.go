// Package apperror carries the error taxonomy shared by all modules.
// Services return these; the HTTP layer maps Kind to a status code in one
// place instead of matching on message strings.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

// Error is a Kind-tagged error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a tagged error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Domain sentinels. Services wrap these so callers can test with errors.Is
// while the boundary still gets a Kind.
var (
	ErrInsufficientStock = New(KindConflict, "insufficient stock")
	ErrEmptyCart         = New(KindValidation, "cart is empty")
	ErrInvalidTransition = New(KindConflict, "invalid status transition")
	ErrNoPayoutAccount   = New(KindConflict, "vendor has no payout account")
	ErrDuplicateReview   = New(KindConflict, "product already reviewed by this user")
	ErrNotFound          = New(KindNotFound, "not found")
	ErrForbidden         = New(KindForbidden, "access denied")
)
