package tasks

import "time"

// Type identifies the kind of work a task performs.
type Type string

const (
	TypeExtractFrames Type = "extract_frames"
	TypeTrainDetector Type = "train_detector"
	TypeBuildDataset  Type = "build_dataset"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Record is one task's observable state. Records are replaced whole
// under the registry lock, so readers always see a consistent snapshot.
type Record struct {
	ID         string
	Type       Type
	Status     Status
	Progress   float64
	Message    string
	EnqueuedAt time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	Payload    map[string]any
	Result     map[string]any
}
