package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindAuthorization  Kind = "authorization"
	KindStateConflict  Kind = "state_conflict"
	KindCapacity       Kind = "capacity"
	KindInfrastructure Kind = "infrastructure"
)

// Error is the failure type returned across every intent boundary. Code is a
// stable snake_case identifier, Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so that a sentinel with a customised message still
// compares equal to the package-level sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Retryable() bool {
	return e.Kind == KindInfrastructure
}

// Wrap returns a copy of e carrying err as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindAuthorization, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindStateConflict, code, message)
}

func Capacity(code, message string) *Error {
	return New(KindCapacity, code, message)
}

// Infra wraps a store or transport failure as a retryable error.
func Infra(code string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: code, Message: "service temporarily unavailable, retry", Err: err}
}

// FromStore passes taxonomy errors through and wraps any other store failure
// as a retryable store_unavailable error. A nil error stays nil.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Infra("store_unavailable", err)
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInfrastructure
}

func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return "internal_error"
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == KindInfrastructure
}

// Message returns the caller-facing text for err. Errors outside the taxonomy
// never leak their internals.
func Message(err error) string {
	if e, ok := As(err); ok {
		return e.Error()
	}
	return "internal error"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindStateConflict:
		return http.StatusConflict
	case KindCapacity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}
