// Package apperror defines the error taxonomy shared by the backend, the HTTP
// layer, and the client models.
//
// Every failure the application cares about falls into one of a handful of
// kinds (not found, validation, conflict, forbidden, unauthenticated). Each kind
// is a sentinel error; an *AppError wraps the sentinel together with a
// human-readable message so callers can do both:
//
//	errors.Is(err, apperror.ErrConflict)   // branch on the kind
//	err.Error()                            // show the backend's reason
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError of the given kind with a verbatim message.
// The remote gateway uses it to rebuild errors that crossed the wire.
func New(kind error, message string) *AppError {
	return &AppError{
		Err:     kind,
		Message: message,
	}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConstraintViolation reports that the store refused a write because it
// would break a uniqueness or capacity rule. The reason is shown to the user
// as-is, e.g. "event is full".
func ConstraintViolation(reason string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: reason,
	}
}

// Message returns the user-facing reason carried by the first *AppError in
// err's chain, or err.Error() when there is none.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means the operation needs a session and none was present
// (or it expired). HTTP handlers map this to 401.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
