package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripline/tripline-be/internal/dispatch"
	"github.com/tripline/tripline-be/internal/planner"
	"github.com/tripline/tripline-be/internal/worker/domain"
)

// processJob runs one dispatched task through the full lifecycle:
// mark running, plan the trip, persist the report, mark done. A nil
// return means the message can be acked.
func (w *Worker) processJob(ctx context.Context, j *job) error {
	taskID := j.msg.TaskID

	w.logger.Info("Processing task",
		slog.String("task_id", taskID),
		slog.String("city", j.msg.City),
		slog.String("worker_id", w.workerID),
	)

	// Step 1: claim the task (submitted -> running)
	if err := w.tasks.SetTaskRunning(ctx, taskID); err != nil {
		if errors.Is(err, domain.ErrTaskTerminal) {
			// Redelivered duplicate of a finished task. The work is
			// already done, so ack and move on.
			w.logger.Warn("Task already finished, skipping",
				slog.String("task_id", taskID),
			)
			return nil
		}
		if errors.Is(err, domain.ErrTaskNotFound) {
			w.logger.Error("Dispatch message references unknown task",
				slog.String("task_id", taskID),
			)
			return err
		}
		// Database error, could be transient
		return domain.NewRetryableError(fmt.Errorf("failed to claim task: %w", err))
	}

	// Step 2: run the planner under the job timeout
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	report, err := w.planner.Plan(jobCtx, planner.TripRequest{
		City:      j.msg.City,
		StartDate: j.msg.StartDate,
		EndDate:   j.msg.EndDate,
	})
	if err != nil {
		reason := err.Error()
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("planning timed out after %s", w.jobTimeout)
		} else if ctx.Err() != nil {
			// Shutdown interrupted the plan. The job itself did not
			// fail, so hand the message back for redelivery.
			w.logger.Info("Planning interrupted by shutdown, requeueing",
				slog.String("task_id", taskID),
			)
			return domain.NewRetryableError(fmt.Errorf("planning interrupted: %w", err))
		}

		w.logger.Error("Trip planning failed",
			slog.String("task_id", taskID),
			slog.String("error", reason),
		)

		// Record the failure and ack: redelivering a task whose
		// planning failed would retry against the same inputs. The
		// write runs on a detached context so an expired job deadline
		// cannot strand the row in running.
		failCtx, cancelFail := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancelFail()
		if failErr := w.tasks.SetTaskFailed(failCtx, taskID, reason); failErr != nil {
			w.logger.Error("Failed to record task failure",
				slog.String("task_id", taskID),
				slog.String("error", failErr.Error()),
			)
		}
		return nil
	}

	// Step 3: persist the report before the state flips to done, so
	// a done row always has an artifact behind it
	if err := w.artifacts.PutText(ctx, dispatch.ArtifactKey(taskID), report); err != nil {
		w.logger.Error("Failed to store report",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		// Object store hiccups are worth a redelivery
		return domain.NewRetryableError(fmt.Errorf("failed to store report: %w", err))
	}

	// Step 4: running -> done
	if err := w.tasks.SetTaskDone(ctx, taskID); err != nil {
		if errors.Is(err, domain.ErrTaskTerminal) {
			return nil
		}
		return domain.NewRetryableError(fmt.Errorf("failed to mark task done: %w", err))
	}

	w.logger.Info("Task done",
		slog.String("task_id", taskID),
		slog.Int("report_size", len(report)),
	)

	return nil
}
