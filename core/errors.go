package core

import "github.com/pkg/errors"

// FieldError describes a validation failure on a single input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries the per-field details of a rejected payload.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, fields ...FieldError) error {
	return &ValidationError{Err: err, Fields: fields}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

// shutdown signals that the app cannot continue; the transport translates it
// into a graceful exit instead of a 500.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s *shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	var sd *shutdown
	return errors.As(err, &sd)
}
