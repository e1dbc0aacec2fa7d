package tasks

import (
	"context"
	"sync"
	"time"

	"urchin/internal/api"
)

// Registry is the process-wide mapping of task ids to status records.
// It is read by HTTP handlers and written by enqueue calls and the
// single worker; every mutation replaces the record whole.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
	cancels map[string]context.CancelFunc
	order   []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]Record),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Get returns a task record by id.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// List returns all records, newest enqueue first.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.records[r.order[i]])
	}
	return out
}

// QueuedCount returns the number of tasks not yet started.
func (r *Registry) QueuedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, rec := range r.records {
		if rec.Status == StatusQueued {
			count++
		}
	}
	return count
}

// RunningID returns the id of the currently running task, if any.
func (r *Registry) RunningID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.Status == StatusRunning {
			return rec.ID
		}
	}
	return ""
}

// Cancel marks a task for cancellation. Queued tasks become cancelled
// immediately; running tasks have their context cancelled and reach the
// cancelled state at the worker's next checkpoint.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return api.E(api.KindNotFound, "unknown task %q", id)
	}

	switch rec.Status {
	case StatusQueued:
		now := time.Now().UTC()
		rec.Status = StatusCancelled
		rec.Message = "cancelled before start"
		rec.FinishedAt = &now
		r.records[id] = rec
		return nil
	case StatusRunning:
		if cancel := r.cancels[id]; cancel != nil {
			cancel()
		}
		return nil
	default:
		return api.E(api.KindConflict, "task %q already %s", id, rec.Status)
	}
}

func (r *Registry) insert(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	r.order = append(r.order, rec.ID)
}

func (r *Registry) storeCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = cancel
}

func (r *Registry) dropCancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, id)
}

// SetProgress updates progress and message for a task. Progress is
// monotonically non-decreasing; lower values are ignored.
func (r *Registry) SetProgress(id string, progress float64, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status.Terminal() {
		return
	}
	if progress > rec.Progress {
		if progress > 100 {
			progress = 100
		}
		rec.Progress = progress
	}
	if message != "" {
		rec.Message = message
	}
	r.records[id] = rec
}

func (r *Registry) markRunning(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status != StatusQueued {
		return rec, false
	}
	now := time.Now().UTC()
	rec.Status = StatusRunning
	rec.Progress = 10
	rec.StartedAt = &now
	r.records[id] = rec
	return rec, true
}

func (r *Registry) finish(id string, status Status, message string, result map[string]any) Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	now := time.Now().UTC()
	rec.Status = status
	rec.Progress = 100
	rec.Message = message
	rec.FinishedAt = &now
	if result != nil {
		rec.Result = result
	}
	r.records[id] = rec
	return rec
}
