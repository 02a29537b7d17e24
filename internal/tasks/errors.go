package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation targets a task that does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransactionError reports a mutation whose transaction failed and was rolled
// back. Callers should not retry blindly: assignment set-replace is not
// guaranteed to be idempotent across partial failures of the caller.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s task: transaction rolled back: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// mutationError passes client errors through and wraps everything else.
func mutationError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}
