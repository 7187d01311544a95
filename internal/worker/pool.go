package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tripline/tripline-be/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case j, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received task",
				slog.String("worker_name", workerName),
				slog.String("task_id", j.msg.TaskID),
				slog.Uint64("delivery_tag", j.delivery.DeliveryTag),
			)

			err := w.processJob(ctx, j)

			// ACK only after all effects landed. A crash before this
			// point redelivers the message instead of losing it.
			if err != nil {
				w.logger.Error("Task processing failed",
					slog.String("worker_name", workerName),
					slog.String("task_id", j.msg.TaskID),
					slog.String("error", err.Error()),
				)

				requeue := w.shouldRequeueTask(err)

				if nackErr := j.delivery.Nack(false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("task_id", j.msg.TaskID),
						slog.String("error", nackErr.Error()),
					)
				} else {
					w.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.String("task_id", j.msg.TaskID),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				if ackErr := j.delivery.Ack(false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("task_id", j.msg.TaskID),
						slog.String("error", ackErr.Error()),
					)
				} else {
					w.logger.Info("Task completed",
						slog.String("worker_name", workerName),
						slog.String("task_id", j.msg.TaskID),
					)
				}
			}
		}
	}
}

// shouldRequeueTask determines if a task should be requeued based on the error type
func (w *Worker) shouldRequeueTask(err error) bool {
	// A message for an unknown or already finished task never
	// succeeds on redelivery
	if errors.Is(err, domain.ErrTaskNotFound) {
		return false
	}
	if errors.Is(err, domain.ErrTaskTerminal) {
		return false
	}

	// Requeue for transient errors only
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
