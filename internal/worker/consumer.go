package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tripline/tripline-be/internal/dispatch"
)

// setupConsumer starts consuming from the task queue and returns the
// delivery channel. QoS is applied by the client so each consumer
// holds at most prefetch_count unacked messages.
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	consumerTag := w.workerID

	deliveries, err := w.rabbitClient.Consume(consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", consumerTag),
		slog.String("worker_id", w.workerID),
	)

	return deliveries, nil
}

// startMessageDispatcher listens to RabbitMQ deliveries and dispatches jobs to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			msg, err := dispatch.Decode(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode dispatch message",
					slog.String("error", err.Error()),
					slog.Int("body_size", len(delivery.Body)),
				)
				// NACK without requeue - a poison message never
				// becomes decodable on redelivery.
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK poison message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			select {
			case w.jobsChan <- &job{msg: *msg, delivery: delivery}:
				w.logger.Debug("Task dispatched to worker pool",
					slog.String("task_id", msg.TaskID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching task")
				// NACK with requeue so another consumer picks it up
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}
