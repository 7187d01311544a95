package domain

import "errors"

var (
	// ErrTaskNotFound indicates the dispatch message references a
	// task id with no row in the state store.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskTerminal indicates the task already reached done or
	// failed, typically a redelivered duplicate.
	ErrTaskTerminal = errors.New("task already in terminal state")
)

// RetryableError wraps errors that should trigger NACK with requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err}
}
