package detector

import (
	"os"

	"urchin/internal/api"
	"urchin/internal/config"
	"urchin/internal/training"
)

// ResolveWeights locates the weights inference should use. Trained
// checkpoints under experimentRoot win over the configured pretrained
// file; with neither present the model is not ready.
func ResolveWeights(cfg config.Detector, experimentRoot string) (string, error) {
	if path, err := training.BestWeights(experimentRoot); err == nil {
		return path, nil
	}

	if cfg.PretrainedWeights != "" {
		if _, err := os.Stat(cfg.PretrainedWeights); err == nil {
			return cfg.PretrainedWeights, nil
		}
	}

	return "", api.E(api.KindModelNotReady, "no trained or pretrained weights available")
}
