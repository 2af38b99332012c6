// Package apperr holds the error kinds shared by the cart and order workflow.
// Callers match kinds with errors.Is; the HTTP layer maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrMissingData       = errors.New("missing data")
	ErrWindowExpired     = errors.New("return window expired")
	ErrInvalidRange      = errors.New("invalid range")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyCart         = errors.New("empty cart")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// Error pairs a kind with the message shown to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing text of err. Errors that are not an
// *Error fall back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
