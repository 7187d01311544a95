package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/tripline/tripline-be/internal/worker/domain"
	"github.com/tripline/tripline-be/shared/postgresql"
)

// Storage handles state store access for the worker service
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// SetTaskRunning moves a task to running. The guard includes running
// itself so a redelivered message for an in-flight task is a no-op
// rather than an error.
func (s *Storage) SetTaskRunning(ctx context.Context, taskID string) error {
	query := `
		UPDATE tasks
		SET state = $1, updated_at = now()
		WHERE id = $2 AND state IN ($3, $1)
	`

	return s.transition(ctx, query, taskID, domain.TaskStateRunning, domain.TaskStateSubmitted)
}

// SetTaskDone marks a task finished. Only running tasks can complete;
// done is included in the guard so duplicate completions stay idempotent.
func (s *Storage) SetTaskDone(ctx context.Context, taskID string) error {
	query := `
		UPDATE tasks
		SET state = $1, error_message = NULL, updated_at = now()
		WHERE id = $2 AND state IN ($3, $1)
	`

	return s.transition(ctx, query, taskID, domain.TaskStateDone, domain.TaskStateRunning)
}

// SetTaskFailed records a terminal failure with the reason shown to
// polling clients.
func (s *Storage) SetTaskFailed(ctx context.Context, taskID, reason string) error {
	query := `
		UPDATE tasks
		SET state = $1, error_message = $4, updated_at = now()
		WHERE id = $2 AND state IN ($3, $1)
	`

	result, err := s.db.ExecContext(ctx, query, domain.TaskStateFailed, taskID, domain.TaskStateRunning, reason)
	if err != nil {
		return fmt.Errorf("failed to set task failed: %w", err)
	}

	return s.checkTransition(ctx, result, taskID)
}

func (s *Storage) transition(ctx context.Context, query, taskID, toState, fromState string) error {
	result, err := s.db.ExecContext(ctx, query, toState, taskID, fromState)
	if err != nil {
		return fmt.Errorf("failed to set task %s: %w", toState, err)
	}

	return s.checkTransition(ctx, result, taskID)
}

// checkTransition distinguishes a missing row from a guarded update
// that matched nothing because the task already moved on.
func (s *Storage) checkTransition(ctx context.Context, result sql.Result, taskID string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var state string
	err = s.db.GetContext(ctx, &state, `SELECT state FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("failed to check task state: %w", err)
	}

	s.logger.Warn("Task transition skipped",
		slog.String("task_id", taskID),
		slog.String("current_state", state),
	)

	return domain.ErrTaskTerminal
}
