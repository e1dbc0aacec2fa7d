package api

import "time"

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

// StatusResponse summarizes daemon runtime state.
type StatusResponse struct {
	Running       bool             `json:"running"`
	Version       string           `json:"version"`
	StartedAt     time.Time        `json:"started_at"`
	ModelReady    bool             `json:"model_ready"`
	WeightsPath   string           `json:"weights_path,omitempty"`
	CameraActive  bool             `json:"camera_active"`
	CameraIndex   int              `json:"camera_index"`
	QueuedTasks   int              `json:"queued_tasks"`
	RunningTaskID string           `json:"running_task_id,omitempty"`
	Preflight     []PreflightCheck `json:"preflight,omitempty"`
}

// PreflightCheck reports one startup dependency check.
type PreflightCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// TaskView is the wire form of a task record.
type TaskView struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Progress   float64        `json:"progress"`
	Message    string         `json:"message,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
}

// ImageView is the wire form of an annotated image listing entry.
type ImageView struct {
	ID              string         `json:"id"`
	OriginalName    string         `json:"original_name"`
	UploadTime      time.Time      `json:"upload_time"`
	AnnotationCount int            `json:"annotation_count"`
	Annotated       bool           `json:"annotated"`
	Classes         map[string]int `json:"classes,omitempty"`
	ThumbnailURL    string         `json:"thumbnail_url,omitempty"`
}

// FolderView describes one dataset folder.
type FolderView struct {
	Name       string `json:"name"`
	ImageCount int    `json:"image_count"`
	Annotated  int    `json:"annotated"`
}

// BuildResult reports the outcome of a dataset build.
type BuildResult struct {
	TrainCount     int      `json:"train_count"`
	ValCount       int      `json:"val_count"`
	Total          int      `json:"total"`
	DescriptorPath string   `json:"descriptor_path"`
	Warnings       []string `json:"warnings,omitempty"`
}

// TrainingStatusView is the wire form of orchestrator status.
type TrainingStatusView struct {
	Running        bool               `json:"running"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	CurrentEpoch   int                `json:"current_epoch"`
	TotalEpochs    int                `json:"total_epochs"`
	Progress       float64            `json:"progress"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	Artifacts      map[string]string  `json:"artifacts,omitempty"`
	LogPath        string             `json:"log_path,omitempty"`
}

// DetectionView is the wire form of a single detection.
type DetectionView struct {
	Box        [4]int  `json:"box"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// VerdictView is the wire form of a sex classification verdict.
type VerdictView struct {
	Gender     string          `json:"gender"`
	Confidence float64         `json:"confidence"`
	Counts     map[string]int  `json:"counts_by_class"`
	Message    string          `json:"message,omitempty"`
	Detections []DetectionView `json:"detections,omitempty"`
}

// MoveResult reports per-item outcomes of a move or delete operation.
type MoveResult struct {
	Done   []string          `json:"done"`
	Errors map[string]string `json:"errors,omitempty"`
}
