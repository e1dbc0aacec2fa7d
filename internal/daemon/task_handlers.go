package daemon

import (
	"context"

	"urchin/internal/tasks"
	"urchin/internal/training"
)

func (d *Daemon) registerTaskHandlers() {
	d.worker.Register(tasks.TypeBuildDataset, d.runBuildDataset)
	d.worker.Register(tasks.TypeTrainDetector, d.runTrainDetector)
	d.worker.Register(tasks.TypeExtractFrames, d.runExtractFrames)
}

func (d *Daemon) runBuildDataset(ctx context.Context, task *tasks.Task) (map[string]any, error) {
	folders := payloadStrings(task.Payload, "folders")
	ratio := payloadFloat(task.Payload, "train_ratio", d.cfg.Dataset.TrainRatio)

	summary, err := d.builder.Build(ctx, folders, ratio)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"train_count":     summary.TrainCount,
		"val_count":       summary.ValCount,
		"total":           summary.Total,
		"descriptor_path": summary.DescriptorPath,
		"warnings":        summary.Warnings,
	}, nil
}

func (d *Daemon) runTrainDetector(ctx context.Context, task *tasks.Task) (map[string]any, error) {
	params := training.Params{
		Weights:   payloadString(task.Payload, "initial_weights", ""),
		Epochs:    payloadInt(task.Payload, "epochs", 0),
		BatchSize: payloadInt(task.Payload, "batch_size", 0),
		ImageSize: payloadInt(task.Payload, "image_size", 0),
		Workers:   payloadInt(task.Payload, "workers", 0),
		Device:    payloadString(task.Payload, "device", ""),
		Name:      payloadString(task.Payload, "experiment_name", ""),
		ExistOK:   payloadBool(task.Payload, "allow_exist"),
		DataPath:  payloadString(task.Payload, "data_path", d.builder.DescriptorPath()),
	}

	err := d.orchestrator.Run(ctx, params, task.SetProgress)
	if err != nil {
		return nil, err
	}

	// A fresh checkpoint may now outrank the one the engine cached.
	d.engine.InvalidateWeights()

	status := d.orchestrator.Status()
	result := map[string]any{
		"epochs":   status.TotalEpochs,
		"log_path": status.LogPath,
	}
	if status.Metrics != nil {
		result["metrics"] = status.Metrics
	}
	if status.Artifacts != nil {
		result["artifacts"] = status.Artifacts
	}
	return result, nil
}

func (d *Daemon) runExtractFrames(ctx context.Context, task *tasks.Task) (map[string]any, error) {
	videoPath := payloadString(task.Payload, "video_path", "")
	outDir := payloadString(task.Payload, "out_dir", "")
	maxImages := payloadInt(task.Payload, "max_images", 0)

	result, err := d.extractor.Run(ctx, videoPath, outDir, maxImages, task.SetProgress)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"frames_read": result.FramesRead,
		"saved_count": len(result.SavedFiles),
		"saved_files": result.SavedFiles,
		"out_dir":     outDir,
	}, nil
}

// Payload values arrive through JSON, so numbers are float64 and string
// slices are []any.

func payloadString(payload map[string]any, key, fallback string) string {
	if value, ok := payload[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func payloadBool(payload map[string]any, key string) bool {
	value, _ := payload[key].(bool)
	return value
}

func payloadInt(payload map[string]any, key string, fallback int) int {
	switch value := payload[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return fallback
	}
}

func payloadFloat(payload map[string]any, key string, fallback float64) float64 {
	switch value := payload[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	default:
		return fallback
	}
}

func payloadStrings(payload map[string]any, key string) []string {
	switch value := payload[key].(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
