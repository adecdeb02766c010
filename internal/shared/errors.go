package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the core operations.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConflict           ErrorKind = "CONFLICT"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindValidation         ErrorKind = "VALIDATION"
	KindTransactionFailure ErrorKind = "TRANSACTION_FAILURE"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate key or a stock item in an unexpected status.
	ErrConflict = errors.New("conflict")
	// ErrPreconditionFailed indicates the operation is not allowed in the current state.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrForbidden indicates the actor role is insufficient.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrTransactionFailure indicates the store could not commit; callers may retry.
	ErrTransactionFailure = errors.New("transaction failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:           ErrNotFound,
	KindConflict:           ErrConflict,
	KindPreconditionFailed: ErrPreconditionFailed,
	KindForbidden:          ErrForbidden,
	KindValidation:         ErrValidation,
	KindTransactionFailure: ErrTransactionFailure,
}

// Error is the typed error returned by services. It matches the sentinel of its
// kind with errors.Is and keeps the storage cause out of Message.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether the caller may retry the operation unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransactionFailure
}

// NotFound builds a NotFound error for an entity.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Conflict builds a Conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// PreconditionFailed builds a PreconditionFailed error.
func PreconditionFailed(format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a Forbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Invalid builds a Validation error naming the offending field.
func Invalid(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransactionFailure wraps a store failure that rolled back.
func TransactionFailure(err error) *Error {
	return &Error{Kind: KindTransactionFailure, Message: "the operation could not be completed, please retry", Err: err}
}

// KindOf returns the kind of err, or an empty kind for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
