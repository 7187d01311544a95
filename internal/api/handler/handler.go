package handler

import (
	"context"
	"log/slog"

	"github.com/tripline/tripline-be/internal/api/service"
	"github.com/tripline/tripline-be/internal/planner"
)

// SubmissionService starts new tasks.
type SubmissionService interface {
	StartTask(ctx context.Context, city, startDate, endDate string) (string, error)
}

// QueryService answers polling requests for task state and output.
type QueryService interface {
	Status(ctx context.Context, taskID string) (string, string, error)
	Output(ctx context.Context, taskID string) (string, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Submission SubmissionService
	Query      QueryService
	Planner    planner.Planner
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	logger     *slog.Logger
	submission SubmissionService
	query      QueryService
	planner    planner.Planner
}

// NewTaskHandler creates a new TaskHandler instance
func NewTaskHandler(deps *Dependencies) *TaskHandler {
	return &TaskHandler{
		logger:     deps.Logger,
		submission: deps.Submission,
		query:      deps.Query,
		planner:    deps.Planner,
	}
}

var _ SubmissionService = (*service.Submission)(nil)
var _ QueryService = (*service.Query)(nil)
