package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"urchin/internal/api"
	"urchin/internal/logging"
)

// Task is the handle a handler receives for progress reporting and
// payload access.
type Task struct {
	ID      string
	Type    Type
	Payload map[string]any

	registry *Registry
}

// SetProgress reports handler progress in [0, 100].
func (t *Task) SetProgress(progress float64, message string) {
	t.registry.SetProgress(t.ID, progress, message)
}

// Handler executes one task type. The returned map becomes the task's
// result payload.
type Handler func(ctx context.Context, task *Task) (map[string]any, error)

// Worker drains the FIFO queue on a single background goroutine.
type Worker struct {
	registry *Registry
	handlers map[Type]Handler
	queue    chan string
	journal  *Journal
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker constructs a worker. journal may be nil.
func NewWorker(registry *Registry, queueSize int, journal *Journal, logger *slog.Logger) *Worker {
	return &Worker{
		registry: registry,
		handlers: make(map[Type]Handler),
		queue:    make(chan string, queueSize),
		journal:  journal,
		logger:   logging.NewComponentLogger(logger, "tasks"),
	}
}

// Register installs the handler for a task type. Must be called before
// Start.
func (w *Worker) Register(taskType Type, handler Handler) {
	w.handlers[taskType] = handler
}

// Enqueue admits a task and returns its fresh id.
func (w *Worker) Enqueue(taskType Type, payload map[string]any) (string, error) {
	if _, ok := w.handlers[taskType]; !ok {
		return "", api.E(api.KindInvalidInput, "unknown task type %q", taskType)
	}

	rec := Record{
		ID:         uuid.NewString(),
		Type:       taskType,
		Status:     StatusQueued,
		EnqueuedAt: time.Now().UTC(),
		Payload:    payload,
	}
	w.registry.insert(rec)

	select {
	case w.queue <- rec.ID:
	default:
		w.registry.finish(rec.ID, StatusFailed, "task queue is full", nil)
		return "", api.E(api.KindConflict, "task queue is full")
	}

	w.logger.Info("task enqueued",
		logging.String(logging.FieldTaskID, rec.ID),
		logging.String("type", string(taskType)))
	return rec.ID, nil
}

// Start launches the worker goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(runCtx)
	return nil
}

// Stop terminates the worker and waits for the in-flight task to
// observe cancellation.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.execute(ctx, id)
		}
	}
}

func (w *Worker) execute(ctx context.Context, id string) {
	rec, ok := w.registry.markRunning(id)
	if !ok {
		// Cancelled while still queued; just journal the terminal record.
		if current, found := w.registry.Get(id); found {
			w.journalTerminal(current)
		}
		return
	}

	logger := w.logger.With(
		logging.String(logging.FieldTaskID, id),
		logging.String("type", string(rec.Type)))
	logger.Info("task started")

	taskCtx, cancel := context.WithCancel(ctx)
	w.registry.storeCancel(id, cancel)
	defer func() {
		cancel()
		w.registry.dropCancel(id)
	}()

	task := &Task{ID: id, Type: rec.Type, Payload: rec.Payload, registry: w.registry}
	result, err := w.dispatch(taskCtx, rec.Type, task)

	var final Record
	switch {
	case err == nil:
		final = w.registry.finish(id, StatusCompleted, "completed", result)
		logger.Info("task completed")
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		final = w.registry.finish(id, StatusCancelled, "cancelled by request", nil)
		logger.Info("task cancelled")
	case errors.Is(err, context.Canceled):
		final = w.registry.finish(id, StatusCancelled, "daemon shutting down", nil)
		logger.Info("task cancelled by shutdown")
	default:
		final = w.registry.finish(id, StatusFailed, err.Error(), nil)
		logger.Error("task failed", logging.Error(err))
	}
	w.journalTerminal(final)
}

// dispatch runs the handler and converts panics into errors so one bad
// task cannot take down the worker.
func (w *Worker) dispatch(ctx context.Context, taskType Type, task *Task) (result map[string]any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("task panicked: %v\n%s", recovered, debug.Stack())
		}
	}()
	handler := w.handlers[taskType]
	return handler(ctx, task)
}

func (w *Worker) journalTerminal(rec Record) {
	if w.journal == nil {
		return
	}
	if err := w.journal.RecordTerminal(rec); err != nil {
		w.logger.Warn("journal write failed",
			logging.Error(err),
			logging.String(logging.FieldTaskID, rec.ID),
			logging.String(logging.FieldEventType, "journal_write_failed"),
			logging.String(logging.FieldImpact, "task will be missing from post-restart history"))
	}
}
