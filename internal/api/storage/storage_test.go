package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripline/tripline-be/internal/api/domain"
	"github.com/tripline/tripline-be/internal/api/model"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Storage{
		db:     sqlx.NewDb(db, "postgres"),
		logger: slog.New(slog.DiscardHandler),
	}, mock
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tasks`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.EnsureSchema(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTask(t *testing.T) {
	s, mock := newMockStorage(t)

	now := time.Now().UTC()
	task := &model.Task{
		ID:        "task-1",
		State:     domain.TaskStateSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO tasks`).
		WithArgs(task.ID, task.State, task.CreatedAt, task.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateTask(context.Background(), task)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTask(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newMockStorage(t)

		now := time.Now().UTC()
		rows := sqlmock.NewRows([]string{"id", "state", "error_message", "created_at", "updated_at"}).
			AddRow("task-1", domain.TaskStateDone, nil, now, now)

		mock.ExpectQuery(`SELECT id, state, error_message, created_at, updated_at`).
			WithArgs("task-1").
			WillReturnRows(rows)

		task, err := s.GetTask(context.Background(), "task-1")

		require.NoError(t, err)
		assert.Equal(t, "task-1", task.ID)
		assert.Equal(t, domain.TaskStateDone, task.State)
		assert.False(t, task.ErrorMessage.Valid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(`SELECT id, state, error_message, created_at, updated_at`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id", "state", "error_message", "created_at", "updated_at"}))

		task, err := s.GetTask(context.Background(), "missing")

		assert.Nil(t, task)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestMarkTaskFailed(t *testing.T) {
	t.Run("updates submitted row", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateFailed, "publish failed", "task-1", domain.TaskStateSubmitted).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.MarkTaskFailed(context.Background(), "task-1", "publish failed")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown task", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateFailed, "publish failed", "missing", domain.TaskStateSubmitted).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT state FROM tasks`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"state"}))

		err := s.MarkTaskFailed(context.Background(), "missing", "publish failed")

		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("does not overwrite a task a worker picked up", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateFailed, "publish failed", "task-1", domain.TaskStateSubmitted).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT state FROM tasks`).
			WithArgs("task-1").
			WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(domain.TaskStateDone))

		err := s.MarkTaskFailed(context.Background(), "task-1", "publish failed")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
