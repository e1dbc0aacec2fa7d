package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		problems = append(problems, "paths.data_root must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		problems = append(problems, "paths.api_bind must be set")
	}
	if c.Dataset.TrainRatio <= 0 || c.Dataset.TrainRatio >= 1 {
		problems = append(problems, fmt.Sprintf("dataset.train_ratio must be in (0, 1), got %v", c.Dataset.TrainRatio))
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("detector.confidence must be in [0, 1], got %v", c.Detector.Confidence))
	}
	if c.Detector.Epochs <= 0 {
		problems = append(problems, "detector.epochs must be positive")
	}
	if c.Detector.BatchSize <= 0 {
		problems = append(problems, "detector.batch_size must be positive")
	}
	if c.Detector.ImageSize <= 0 {
		problems = append(problems, "detector.image_size must be positive")
	}
	if c.Extractor.FrameInterval <= 0 {
		problems = append(problems, "extractor.frame_interval must be positive")
	}
	if c.Extractor.SimilarityThreshold <= 0 || c.Extractor.SimilarityThreshold > 1 {
		problems = append(problems, "extractor.similarity_threshold must be in (0, 1]")
	}
	if c.Extractor.MaxImages <= 0 {
		problems = append(problems, "extractor.max_images must be positive")
	}
	if c.Tasks.QueueSize <= 0 {
		problems = append(problems, "tasks.queue_size must be positive")
	}
	if c.Camera.Index < 0 {
		problems = append(problems, "camera.index must be non-negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
