// Package apperr defines the single tagged error value surfaced by the HTTP API.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error and determines its HTTP status.
type Kind int

// Error kinds.
const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindMethodNotAllowed
	KindMissingField
	KindInternal
	KindConflict
	KindValidation
)

var kindNames = map[Kind]string{
	KindBadRequest:       "bad_request",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindNotFound:         "not_found",
	KindMethodNotAllowed: "method_not_allowed",
	KindMissingField:     "missing_field",
	KindInternal:         "internal",
	KindConflict:         "conflict",
	KindValidation:       "validation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest, KindMissingField, KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a caller-safe message, and an optional cause that is
// only reachable through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error returns the caller-safe message. The cause is never included.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for logging.
func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// BadRequest reports malformed or empty input.
func BadRequest(message string) *Error {
	if message == "" {
		message = "Bad Request"
	}
	return New(KindBadRequest, message)
}

// Forbidden reports a shared-secret mismatch.
func Forbidden() *Error {
	return New(KindForbidden, "Forbidden")
}

// NotFound reports an unknown route or resource.
func NotFound() *Error {
	return New(KindNotFound, "Not Found")
}

// MethodNotAllowed reports an unsupported HTTP method.
func MethodNotAllowed() *Error {
	return New(KindMethodNotAllowed, "Method not allowed")
}

// MissingField reports a required configuration value or input field that is absent.
func MissingField(field string) *Error {
	return New(KindMissingField, fmt.Sprintf("%s is invalid or missing!", field))
}

// Validation reports input that parsed but failed validation.
func Validation(message string) *Error {
	if message == "" {
		message = "Validation Failed"
	}
	return New(KindValidation, message)
}

// Conflict reports a conflicting request.
func Conflict(message string) *Error {
	if message == "" {
		message = "Conflicts were found while processing your request!"
	}
	return New(KindConflict, message)
}

// Internal scrubs cause behind a generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal Server Error", cause: cause}
}

// From returns err as an *Error. Untagged errors become Internal so upstream
// detail never reaches a caller.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
