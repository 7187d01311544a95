package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripline/tripline-be/internal/dispatch"
	"github.com/tripline/tripline-be/internal/planner"
	"github.com/tripline/tripline-be/internal/worker/domain"
)

type fakeTaskStore struct {
	runningErr error
	doneErr    error
	failedErr  error

	running []string
	done    []string
	failed  map[string]string

	failedCtxErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{failed: make(map[string]string)}
}

func (f *fakeTaskStore) SetTaskRunning(ctx context.Context, taskID string) error {
	if f.runningErr != nil {
		return f.runningErr
	}
	f.running = append(f.running, taskID)
	return nil
}

func (f *fakeTaskStore) SetTaskDone(ctx context.Context, taskID string) error {
	if f.doneErr != nil {
		return f.doneErr
	}
	f.done = append(f.done, taskID)
	return nil
}

func (f *fakeTaskStore) SetTaskFailed(ctx context.Context, taskID, reason string) error {
	f.failedCtxErr = ctx.Err()
	if f.failedErr != nil {
		return f.failedErr
	}
	f.failed[taskID] = reason
	return nil
}

type fakeArtifactStore struct {
	putErr  error
	objects map[string]string
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{objects: make(map[string]string)}
}

func (f *fakeArtifactStore) EnsureBucket(ctx context.Context) error {
	return nil
}

func (f *fakeArtifactStore) PutText(ctx context.Context, key, text string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = text
	return nil
}

type fakePlanner struct {
	report string
	err    error
}

func (f *fakePlanner) Plan(ctx context.Context, req planner.TripRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.report, nil
}

// blockingPlanner never returns until its context is done.
type blockingPlanner struct{}

func (blockingPlanner) Plan(ctx context.Context, req planner.TripRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestWorker(tasks taskStore, artifacts artifactStore, p planner.Planner) *Worker {
	return &Worker{
		logger:     slog.New(slog.DiscardHandler),
		tasks:      tasks,
		artifacts:  artifacts,
		planner:    p,
		jobTimeout: time.Minute,
		workerID:   "test-worker",
	}
}

func testJob() *job {
	return &job{msg: dispatch.Message{
		TaskID:    "task-1",
		City:      "Paris",
		StartDate: "2026-06-01",
		EndDate:   "2026-06-05",
	}}
}

func TestProcessJob(t *testing.T) {
	t.Run("success persists report then marks done", func(t *testing.T) {
		tasks := newFakeTaskStore()
		artifacts := newFakeArtifactStore()
		w := newTestWorker(tasks, artifacts, &fakePlanner{report: "Trip report for Paris"})

		err := w.processJob(context.Background(), testJob())

		require.NoError(t, err)
		assert.Equal(t, []string{"task-1"}, tasks.running)
		assert.Equal(t, []string{"task-1"}, tasks.done)
		assert.Equal(t, "Trip report for Paris", artifacts.objects["task-1.txt"])
		assert.Empty(t, tasks.failed)
	})

	t.Run("finished duplicate is acked without replanning", func(t *testing.T) {
		tasks := newFakeTaskStore()
		tasks.runningErr = domain.ErrTaskTerminal
		artifacts := newFakeArtifactStore()
		w := newTestWorker(tasks, artifacts, &fakePlanner{report: "should not run"})

		err := w.processJob(context.Background(), testJob())

		assert.NoError(t, err)
		assert.Empty(t, artifacts.objects)
		assert.Empty(t, tasks.done)
	})

	t.Run("unknown task is not requeued", func(t *testing.T) {
		tasks := newFakeTaskStore()
		tasks.runningErr = domain.ErrTaskNotFound
		w := newTestWorker(tasks, newFakeArtifactStore(), &fakePlanner{})

		err := w.processJob(context.Background(), testJob())

		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
		assert.False(t, w.shouldRequeueTask(err))
	})

	t.Run("claim failure is retryable", func(t *testing.T) {
		tasks := newFakeTaskStore()
		tasks.runningErr = errors.New("connection reset")
		w := newTestWorker(tasks, newFakeArtifactStore(), &fakePlanner{})

		err := w.processJob(context.Background(), testJob())

		require.Error(t, err)
		assert.True(t, w.shouldRequeueTask(err))
	})

	t.Run("job deadline marks task failed with timeout reason", func(t *testing.T) {
		tasks := newFakeTaskStore()
		w := newTestWorker(tasks, newFakeArtifactStore(), blockingPlanner{})
		w.jobTimeout = 20 * time.Millisecond

		err := w.processJob(context.Background(), testJob())

		assert.NoError(t, err)
		assert.Contains(t, tasks.failed["task-1"], "timed out after")
		// The failure write must not ride the expired job context
		assert.NoError(t, tasks.failedCtxErr)
		assert.Empty(t, tasks.done)
	})

	t.Run("shutdown mid-plan requeues instead of failing the task", func(t *testing.T) {
		tasks := newFakeTaskStore()
		w := newTestWorker(tasks, newFakeArtifactStore(), blockingPlanner{})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		err := w.processJob(ctx, testJob())

		require.Error(t, err)
		assert.True(t, w.shouldRequeueTask(err))
		assert.Empty(t, tasks.failed)
		assert.Empty(t, tasks.done)
	})

	t.Run("planner failure records reason and acks", func(t *testing.T) {
		tasks := newFakeTaskStore()
		w := newTestWorker(tasks, newFakeArtifactStore(), &fakePlanner{err: errors.New("upstream 503")})

		err := w.processJob(context.Background(), testJob())

		assert.NoError(t, err)
		assert.Contains(t, tasks.failed["task-1"], "upstream 503")
		assert.Empty(t, tasks.done)
	})

	t.Run("artifact store failure is retryable", func(t *testing.T) {
		tasks := newFakeTaskStore()
		artifacts := newFakeArtifactStore()
		artifacts.putErr = errors.New("connection refused")
		w := newTestWorker(tasks, artifacts, &fakePlanner{report: "Trip report for Paris"})

		err := w.processJob(context.Background(), testJob())

		require.Error(t, err)
		assert.True(t, w.shouldRequeueTask(err))
		assert.Empty(t, tasks.done)
	})

	t.Run("done transition failure is retryable", func(t *testing.T) {
		tasks := newFakeTaskStore()
		tasks.doneErr = errors.New("connection reset")
		w := newTestWorker(tasks, newFakeArtifactStore(), &fakePlanner{report: "Trip report for Paris"})

		err := w.processJob(context.Background(), testJob())

		require.Error(t, err)
		assert.True(t, w.shouldRequeueTask(err))
	})
}

func TestShouldRequeueTask(t *testing.T) {
	w := newTestWorker(newFakeTaskStore(), newFakeArtifactStore(), &fakePlanner{})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "retryable error", err: domain.NewRetryableError(errors.New("transient")), want: true},
		{name: "wrapped retryable error", err: domain.NewRetryableError(errors.New("transient")), want: true},
		{name: "task not found", err: domain.ErrTaskNotFound, want: false},
		{name: "terminal task", err: domain.ErrTaskTerminal, want: false},
		{name: "plain error", err: errors.New("unknown"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeueTask(tt.err))
		})
	}
}
