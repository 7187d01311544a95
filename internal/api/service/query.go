package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tripline/tripline-be/internal/api/domain"
	"github.com/tripline/tripline-be/internal/api/model"
	"github.com/tripline/tripline-be/internal/dispatch"
	"github.com/tripline/tripline-be/shared/objectstore"
)

// TaskReader reads task rows from the state store.
type TaskReader interface {
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
}

// ArtifactReader reads finished reports from the result store.
type ArtifactReader interface {
	GetText(ctx context.Context, key string) (string, error)
}

// Query serves the polling side: task status and finished output.
type Query struct {
	store     TaskReader
	artifacts ArtifactReader
	logger    *slog.Logger
}

// NewQuery creates a new Query service
func NewQuery(store TaskReader, artifacts ArtifactReader, logger *slog.Logger) *Query {
	return &Query{
		store:     store,
		artifacts: artifacts,
		logger:    logger,
	}
}

// Status returns the current state of a task and, for failed tasks,
// the recorded reason.
func (q *Query) Status(ctx context.Context, taskID string) (string, string, error) {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return "", "", err
		}
		return "", "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	reason := ""
	if task.State == domain.TaskStateFailed && task.ErrorMessage.Valid {
		reason = task.ErrorMessage.String
	}

	return task.State, reason, nil
}

// Output returns the finished report for a done task. The state store
// is consulted first so an unknown id is distinguishable from a task
// that exists but has not finished.
func (q *Query) Output(ctx context.Context, taskID string) (string, error) {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	switch task.State {
	case domain.TaskStateDone:
	case domain.TaskStateFailed:
		reason := "task failed"
		if task.ErrorMessage.Valid {
			reason = task.ErrorMessage.String
		}
		return "", fmt.Errorf("%w: %s", domain.ErrTaskFailed, reason)
	default:
		return "", domain.ErrResultNotReady
	}

	report, err := q.artifacts.GetText(ctx, dispatch.ArtifactKey(taskID))
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			// The row says done but the artifact has not landed
			// yet; let the client poll again rather than 500.
			q.logger.Warn("Task done but artifact missing",
				slog.String("task_id", taskID),
			)
			return "", domain.ErrResultNotReady
		}
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	return report, nil
}
