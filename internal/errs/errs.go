// Package errs defines the error kinds surfaced by the pipeline core.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation decisions and API mapping.
type Kind string

const (
	KindTransport       Kind = "transport"
	KindHTTPClientError Kind = "http_client_error"
	KindHTTPServerError Kind = "http_server_error"
	KindRateLimited     Kind = "rate_limited"
	KindRobotsDenied    Kind = "robots_denied"
	KindRenderTimeout   Kind = "render_timeout"
	KindParseError      Kind = "parse_error"
	KindSchemaViolation Kind = "schema_violation"
	KindDuplicate       Kind = "duplicate"
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindConflict        Kind = "conflict"
	KindCancelled       Kind = "cancelled"
	KindInternal        Kind = "internal"
)

// Error is a kinded error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a kinded error without a cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the fetcher may retry the request that produced err.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindHTTPServerError, KindRateLimited:
		return true
	}
	return false
}
