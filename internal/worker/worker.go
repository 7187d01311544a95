package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tripline/tripline-be/internal/dispatch"
	"github.com/tripline/tripline-be/internal/planner"
	"github.com/tripline/tripline-be/internal/worker/storage"
	"github.com/tripline/tripline-be/shared/objectstore"
	"github.com/tripline/tripline-be/shared/rabbitmq"
)

// taskStore is the state store surface the worker needs.
type taskStore interface {
	SetTaskRunning(ctx context.Context, taskID string) error
	SetTaskDone(ctx context.Context, taskID string) error
	SetTaskFailed(ctx context.Context, taskID, reason string) error
}

// artifactStore persists finished reports.
type artifactStore interface {
	EnsureBucket(ctx context.Context) error
	PutText(ctx context.Context, key, text string) error
}

// job pairs a decoded dispatch message with its broker delivery so
// the processing goroutine can ack or nack it.
type job struct {
	msg      dispatch.Message
	delivery amqp.Delivery
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Storage      *storage.Storage
	Artifacts    *objectstore.Client
	RabbitClient *rabbitmq.Client
	Planner      planner.Planner
	Concurrency  int
	JobTimeout   time.Duration
}

// Worker consumes dispatched trip tasks and runs the planner on them
type Worker struct {
	logger       *slog.Logger
	tasks        taskStore
	artifacts    artifactStore
	rabbitClient *rabbitmq.Client
	planner      planner.Planner
	concurrency  int
	jobTimeout   time.Duration
	workerID     string
	jobsChan     chan *job
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}

	return &Worker{
		logger:       cfg.Logger,
		tasks:        cfg.Storage,
		artifacts:    cfg.Artifacts,
		rabbitClient: cfg.RabbitClient,
		planner:      cfg.Planner,
		concurrency:  cfg.Concurrency,
		jobTimeout:   cfg.JobTimeout,
		workerID:     fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		jobsChan:     make(chan *job),
		stopChan:     make(chan struct{}),
	}
}

// Start begins consuming and processing tasks. Blocks until the
// context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	if err := w.artifacts.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure result bucket: %w", err)
	}

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
