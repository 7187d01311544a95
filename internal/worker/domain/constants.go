package domain

// Task lifecycle states. Transitions only move forward: submitted to
// running, running to done or failed.
const (
	TaskStateSubmitted = "submitted"
	TaskStateRunning   = "running"
	TaskStateDone      = "done"
	TaskStateFailed    = "failed"
)
