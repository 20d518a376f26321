package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Callers classify with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// Specific errors wrapping the classes above.
var (
	ErrDomainNotFound  = fmt.Errorf("domain %w", ErrNotFound)
	ErrAlertNotFound   = fmt.Errorf("alert %w", ErrNotFound)
	ErrDomainExists    = fmt.Errorf("%w: domain already exists in suspicious domains list", ErrConflict)
	ErrAlreadyResolved = fmt.Errorf("%w: alert is already resolved", ErrConflict)
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors collects every invalid field of one request.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() error { return ErrValidation }
