package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripline/tripline-be/internal/worker/domain"
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

func TestSetTaskRunning(t *testing.T) {
	t.Run("submitted task transitions", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateRunning, "task-1", domain.TaskStateSubmitted).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.SetTaskRunning(context.Background(), "task-1")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing task", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateRunning, "missing", domain.TaskStateSubmitted).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT state FROM tasks`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"state"}))

		err := s.SetTaskRunning(context.Background(), "missing")

		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("terminal task rejected", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateRunning, "task-1", domain.TaskStateSubmitted).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT state FROM tasks`).
			WithArgs("task-1").
			WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(domain.TaskStateDone))

		err := s.SetTaskRunning(context.Background(), "task-1")

		assert.ErrorIs(t, err, domain.ErrTaskTerminal)
	})
}

func TestSetTaskDone(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE tasks`).
		WithArgs(domain.TaskStateDone, "task-1", domain.TaskStateRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SetTaskDone(context.Background(), "task-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTaskFailed(t *testing.T) {
	t.Run("records reason", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateFailed, "task-1", domain.TaskStateRunning, "planner timeout").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.SetTaskFailed(context.Background(), "task-1", "planner timeout")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("done task stays done", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectExec(`UPDATE tasks`).
			WithArgs(domain.TaskStateFailed, "task-1", domain.TaskStateRunning, "late failure").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT state FROM tasks`).
			WithArgs("task-1").
			WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(domain.TaskStateDone))

		err := s.SetTaskFailed(context.Background(), "task-1", "late failure")

		assert.ErrorIs(t, err, domain.ErrTaskTerminal)
	})
}
