// Package common holds the pieces every HTTP surface shares: the caller-facing
// error taxonomy, the JSON response helpers and id generation.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an error by how it is presented to the caller.
type ErrorKind string

const (
	KindBadRequest       ErrorKind = "bad_request"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindForbidden        ErrorKind = "forbidden"
	KindNotFound         ErrorKind = "not_found"
	KindMethodNotAllowed ErrorKind = "method_not_allowed"
	KindUpstream         ErrorKind = "upstream_failure"
	KindInternal         ErrorKind = "internal_error"
)

const internalMessage = "Internal Server Error"

// Error is a caller-facing error. Message is safe to render; Err is the
// underlying cause and is only ever logged.
type Error struct {
	Kind    ErrorKind
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

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Loggable reports whether the cause should be logged before rendering.
func (e *Error) Loggable() bool {
	return e.Kind == KindUpstream || e.Kind == KindInternal
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func MethodNotAllowed(message string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: message}
}

// Upstream wraps a dependency failure. The message shown to the caller is
// generic unless one is given.
func Upstream(err error, message ...string) *Error {
	msg := internalMessage
	if len(message) > 0 {
		msg = message[0]
	}
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalMessage, Err: err}
}

// AsError extracts an *Error from err. Anything else becomes an internal error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
