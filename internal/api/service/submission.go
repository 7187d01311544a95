package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripline/tripline-be/internal/api/domain"
	"github.com/tripline/tripline-be/internal/api/model"
	"github.com/tripline/tripline-be/internal/dispatch"
	"github.com/tripline/tripline-be/internal/geo"
)

const dateLayout = "2006-01-02"

// TaskStore is the subset of the state store the submission flow needs.
type TaskStore interface {
	EnsureSchema(ctx context.Context) error
	CreateTask(ctx context.Context, task *model.Task) error
	MarkTaskFailed(ctx context.Context, taskID, reason string) error
}

// Publisher dispatches encoded task messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Submission owns the submit flow: validate, persist, dispatch.
type Submission struct {
	store    TaskStore
	producer Publisher
	resolver geo.Resolver
	logger   *slog.Logger
}

// NewSubmission creates a new Submission service
func NewSubmission(store TaskStore, producer Publisher, resolver geo.Resolver, logger *slog.Logger) *Submission {
	return &Submission{
		store:    store,
		producer: producer,
		resolver: resolver,
		logger:   logger,
	}
}

// ValidateDateRange checks that both dates parse and the range is
// non-empty. Date checks run before any location lookup so a bad
// range never spends a geocoding call.
func ValidateDateRange(startDate, endDate string) error {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return fmt.Errorf("%w: start_date %q is not a valid date", domain.ErrInvalidDateRange, startDate)
	}

	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return fmt.Errorf("%w: end_date %q is not a valid date", domain.ErrInvalidDateRange, endDate)
	}

	if !start.Before(end) {
		return fmt.Errorf("%w: start_date must be before end_date", domain.ErrInvalidDateRange)
	}

	return nil
}

// StartTask validates the request, records the task as submitted and
// publishes the dispatch message. The row is written before the
// publish so a consumer can never observe a message without a row.
func (s *Submission) StartTask(ctx context.Context, city, startDate, endDate string) (string, error) {
	if err := ValidateDateRange(startDate, endDate); err != nil {
		return "", err
	}

	if _, err := s.resolver.Resolve(ctx, city); err != nil {
		return "", err
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	now := time.Now().UTC()
	task := &model.Task{
		ID:        uuid.NewString(),
		State:     domain.TaskStateSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	body, err := dispatch.Encode(&dispatch.Message{
		TaskID:    task.ID,
		City:      city,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		s.failTask(ctx, task.ID, "encode dispatch message: "+err.Error())
		return "", fmt.Errorf("%w: %v", domain.ErrDispatch, err)
	}

	if err := s.producer.Publish(ctx, body, dispatch.ContentType); err != nil {
		s.failTask(ctx, task.ID, "publish dispatch message: "+err.Error())
		return "", fmt.Errorf("%w: %v", domain.ErrDispatch, err)
	}

	s.logger.Info("Task submitted",
		slog.String("task_id", task.ID),
		slog.String("city", city),
	)

	return task.ID, nil
}

// failTask is best effort: the caller is already returning a dispatch
// error, so a failure to record the reason is only logged.
func (s *Submission) failTask(ctx context.Context, taskID, reason string) {
	if err := s.store.MarkTaskFailed(ctx, taskID, reason); err != nil {
		s.logger.Error("Failed to record task failure",
			slog.String("task_id", taskID),
			slog.Any("error", err),
		)
	}
}
