// Package apperr classifies failures so every surface reports them the same way.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names a failure class.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindLookup         Kind = "lookup"
	KindPersistence    Kind = "persistence"
	KindDelivery       Kind = "delivery"
	KindInternal       Kind = "internal"
)

const internalMessage = "internal error"

// Error is a classified failure. Message is safe to show to callers; Err carries the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, &Error{Kind: KindLookup}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == "" && other.Err == nil
}

// New returns a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind with a caller-safe message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error     { return New(KindValidation, message) }
func Authentication(message string) *Error { return New(KindAuthentication, message) }
func Lookup(message string) *Error         { return New(KindLookup, message) }

// KindOf reports the kind of err. Unclassified errors are internal; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err. Causes of internal and
// persistence failures are never exposed.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return internalMessage
	}
	if appErr.Message != "" {
		return appErr.Message
	}
	if appErr.Kind == KindInternal || appErr.Kind == KindPersistence {
		return internalMessage
	}
	if appErr.Err != nil {
		return appErr.Err.Error()
	}
	return string(appErr.Kind)
}

// HTTPStatus maps a kind to the status code the API answers with. Expected
// domain outcomes (bad credentials, missing records, undelivered mail) are 200
// with success=false or warnings in the body.
func HTTPStatus(kind Kind) int {
	switch kind {
	case "":
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication, KindLookup, KindDelivery:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
