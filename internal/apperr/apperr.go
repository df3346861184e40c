// Package apperr defines the error taxonomy shared by the ingestion pipeline,
// the catalog writer and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind int

const (
	Unknown Kind = iota
	InvalidIdentifier
	InvalidInput
	ResolutionFailed
	NotFoundUpstream
	DecodeFailed
	DuplicateIdentifier
	NotFound
	AccessDenied
	PersistenceFailed
)

var kindNames = map[Kind]string{
	Unknown:             "unknown",
	InvalidIdentifier:   "invalid_identifier",
	InvalidInput:        "invalid_input",
	ResolutionFailed:    "resolution_failed",
	NotFoundUpstream:    "not_found_upstream",
	DecodeFailed:        "decode_failed",
	DuplicateIdentifier: "duplicate_identifier",
	NotFound:            "not_found",
	AccessDenied:        "access_denied",
	PersistenceFailed:   "persistence_failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// Error carries a Kind, a message that is safe to show to end users, and an
// optional underlying cause.
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

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of err, or fallback when err is not
// an *Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
