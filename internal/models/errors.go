package models

import (
	"errors"
	"fmt"
)

// ValidationError represents a structural validation failure in models.
type ValidationError struct {
	message string
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		message: fmt.Sprintf(format, args...),
	}
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return e.message
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InputError represents malformed grammar at a specific line of raw input.
// Input errors are recovered locally: the line is skipped and counted,
// the batch continues.
type InputError struct {
	Line    int
	Message string
}

// NewInputError creates an input error for a specific line (1-based).
func NewInputError(line int, format string, args ...interface{}) *InputError {
	return &InputError{
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error returns the error message
func (e *InputError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// IsInputError checks if an error is an input error
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// AdapterError represents a structural failure of a parser (I/O failure,
// unexpected binary input). It aborts the batch and wraps the adapter
// name together with the underlying cause.
type AdapterError struct {
	Adapter string
	Err     error
}

// NewAdapterError wraps a cause with the failing adapter's name.
func NewAdapterError(adapter string, err error) *AdapterError {
	return &AdapterError{Adapter: adapter, Err: err}
}

// Error returns the error message
func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %q: %v", e.Adapter, e.Err)
}

// Unwrap returns the underlying cause
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterError checks if an error is an adapter error
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}

// PersistenceError represents a per-claim save failure. The claim is
// dropped and counted; the batch continues.
type PersistenceError struct {
	EdgeKey string
	Err     error
}

// NewPersistenceError wraps a save failure with the affected edge.
func NewPersistenceError(edgeKey string, err error) *PersistenceError {
	return &PersistenceError{EdgeKey: edgeKey, Err: err}
}

// Error returns the error message
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting claim %s: %v", e.EdgeKey, e.Err)
}

// Unwrap returns the underlying cause
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError checks if an error is a persistence error
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
