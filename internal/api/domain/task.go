package domain

import "errors"

// Task lifecycle states. Transitions only move forward:
// submitted -> running -> done, with failed as the alternate terminal
// state reachable from submitted or running.
const (
	TaskStateSubmitted = "submitted"
	TaskStateRunning   = "running"
	TaskStateDone      = "done"
	TaskStateFailed    = "failed"
)

var (
	// ErrTaskNotFound is returned when no task exists for the given id
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidDateRange is returned when the start date is not
	// strictly before the end date, or a date fails to parse
	ErrInvalidDateRange = errors.New("start date must be before end date")

	// ErrPersistence is returned when the task row cannot be written.
	// Nothing is published in that case.
	ErrPersistence = errors.New("state store failure")

	// ErrDispatch is returned when the task row exists but the
	// dispatch message could not be published
	ErrDispatch = errors.New("failed to dispatch task")

	// ErrResultNotReady is returned when the task exists but has not
	// produced its artifact yet
	ErrResultNotReady = errors.New("task result not ready")

	// ErrTaskFailed is returned on output queries for a failed task
	ErrTaskFailed = errors.New("task failed")
)
