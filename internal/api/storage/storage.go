package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/tripline/tripline-be/internal/api/domain"
	"github.com/tripline/tripline-be/internal/api/model"
	"github.com/tripline/tripline-be/shared/postgresql"
)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS tasks (
		id            varchar(64) PRIMARY KEY,
		state         varchar(32) NOT NULL,
		error_message text,
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now()
	)
`

// Storage handles state store access for the API service
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

// EnsureSchema creates the tasks table if it does not exist. Safe to
// call repeatedly and from concurrent requests.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure tasks schema: %w", err)
	}
	return nil
}

// CreateTask inserts a new task row
func (s *Storage) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query, task.ID, task.State, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask retrieves a task row by id
func (s *Storage) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	query := `
		SELECT id, state, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	var task model.Task
	err := s.db.GetContext(ctx, &task, query, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// MarkTaskFailed records a terminal failure with its reason. Used as
// the compensating write when a dispatch publish fails after insert,
// so the row is not left as a silently stuck submission. The guard
// keeps it from clobbering a worker that picked the task up anyway
// after an ambiguous publish failure.
func (s *Storage) MarkTaskFailed(ctx context.Context, taskID, reason string) error {
	query := `
		UPDATE tasks
		SET state = $1, error_message = $2, updated_at = now()
		WHERE id = $3 AND state IN ($4, $1)
	`

	result, err := s.db.ExecContext(ctx, query, domain.TaskStateFailed, reason, taskID, domain.TaskStateSubmitted)
	if err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		var state string
		err := s.db.GetContext(ctx, &state, `SELECT state FROM tasks WHERE id = $1`, taskID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrTaskNotFound
			}
			return fmt.Errorf("failed to check task state: %w", err)
		}

		// The message was delivered after all and a worker moved the
		// task forward. Nothing to compensate.
		s.logger.Warn("Task failure mark skipped",
			slog.String("task_id", taskID),
			slog.String("current_state", state),
		)
		return nil
	}

	s.logger.Warn("Task marked failed",
		slog.String("task_id", taskID),
		slog.String("reason", reason),
	)

	return nil
}
