// Package apperr defines the error kinds shared by stores, services and
// handlers. Callers match kinds with errors.Is and read details with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrPersistence     = errors.New("persistence failure")
)

// Error carries a client-facing message for one of the kinds above.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Fields: fields}
}

func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: ErrUnauthenticated, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Persistence wraps a storage failure. The cause stays reachable through
// errors.Is/As but is never shown to clients.
func Persistence(op string, cause error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrPersistence, cause))
}

// Message returns the client-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// FromValidation converts ozzo-validation field errors into a validation
// Error keyed by JSON field name.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for name, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[name] = fieldErr.Error()
		}
	}
	return ValidationFields("invalid input", fields)
}
