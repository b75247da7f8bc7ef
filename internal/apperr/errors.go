package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and branching.
type Kind int

const (
	// Internal is any storage or infrastructure failure; opaque to clients.
	Internal Kind = iota
	// Validation marks missing or malformed client input.
	Validation
	// Conflict marks a write whose target already logically exists.
	Conflict
	// NotFound marks a missing referenced entity (user, class, code).
	NotFound
	// Auth marks credential mismatch or an invalid/expired token.
	Auth
)

// Error carries a kind, a client-safe message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind with a client-safe message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a cause to a kinded error. The cause is never shown to
// clients in production; Message is.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind of err, defaulting to Internal for anything
// that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-safe message for err, or a generic one.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// Status maps an error kind to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Auth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
