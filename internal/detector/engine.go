package detector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"urchin/internal/api"
	"urchin/internal/config"
	"urchin/internal/logging"
)

// Engine classifies images and live frames with lazily resolved weights.
type Engine struct {
	cfg            config.Detector
	experimentRoot string
	backend        Backend
	logger         *slog.Logger

	mu          sync.Mutex
	weightsPath string
}

// NewEngine constructs an engine backed by the subprocess runner.
func NewEngine(cfg config.Detector, experimentRoot string, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:            cfg,
		experimentRoot: experimentRoot,
		backend:        NewCLIBackend(cfg),
		logger:         logging.NewComponentLogger(logger, "detector"),
	}
}

// NewEngineWithBackend is NewEngine with an explicit backend, for tests.
func NewEngineWithBackend(cfg config.Detector, experimentRoot string, backend Backend, logger *slog.Logger) *Engine {
	engine := NewEngine(cfg, experimentRoot, logger)
	engine.backend = backend
	return engine
}

// Weights resolves and caches the weights path. Resolution is retried on
// every call until it succeeds, so a model trained after startup becomes
// visible without a restart.
func (e *Engine) Weights() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.weightsPath != "" {
		return e.weightsPath, nil
	}
	path, err := ResolveWeights(e.cfg, e.experimentRoot)
	if err != nil {
		return "", err
	}
	e.weightsPath = path
	e.logger.Info("weights resolved", logging.String("path", path))
	return path, nil
}

// InvalidateWeights drops the cached path so the next inference
// re-resolves. Called after a training run completes.
func (e *Engine) InvalidateWeights() {
	e.mu.Lock()
	e.weightsPath = ""
	e.mu.Unlock()
}

// Ready reports whether weights can currently be resolved.
func (e *Engine) Ready() bool {
	_, err := e.Weights()
	return err == nil
}

func (e *Engine) confidence(threshold float64) float64 {
	if threshold > 0 {
		return threshold
	}
	return e.cfg.Confidence
}

// DetectFile runs the detector on an image file and filters by
// confidence.
func (e *Engine) DetectFile(ctx context.Context, imagePath string, threshold float64) ([]Detection, error) {
	weights, err := e.Weights()
	if err != nil {
		return nil, err
	}
	threshold = e.confidence(threshold)

	raw, err := e.backend.Predict(ctx, weights, imagePath, threshold)
	if err != nil {
		return nil, err
	}
	detections := raw[:0]
	for _, d := range raw {
		if d.Confidence >= threshold {
			detections = append(detections, d)
		}
	}
	return detections, nil
}

// Detect runs the detector on an in-memory frame. Capture frames are in
// the device's native channel order; encoding to JPEG here performs the
// handoff so the runner sees a standard image file.
func (e *Engine) Detect(ctx context.Context, frame gocv.Mat, threshold float64) ([]Detection, error) {
	if frame.Empty() {
		return nil, api.E(api.KindInvalidInput, "empty frame")
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("urchin_frame_%d.jpg", time.Now().UnixNano()))
	if ok := gocv.IMWrite(tmp, frame); !ok {
		return nil, api.E(api.KindIOError, "encode frame for inference")
	}
	defer os.Remove(tmp)

	return e.DetectFile(ctx, tmp, threshold)
}

// ClassifyFile produces a verdict for an image file. Inference failures
// degrade to an unknown verdict; only unresolved weights refuse.
func (e *Engine) ClassifyFile(ctx context.Context, imagePath string, threshold float64) (Verdict, error) {
	detections, err := e.DetectFile(ctx, imagePath, threshold)
	if err != nil {
		return e.degrade(err)
	}
	return Decide(detections), nil
}

// Classify produces a verdict for an in-memory frame with the same
// degradation rule as ClassifyFile.
func (e *Engine) Classify(ctx context.Context, frame gocv.Mat, threshold float64) (Verdict, error) {
	detections, err := e.Detect(ctx, frame, threshold)
	if err != nil {
		return e.degrade(err)
	}
	return Decide(detections), nil
}

func (e *Engine) degrade(err error) (Verdict, error) {
	if api.KindOf(err) == api.KindModelNotReady {
		return Verdict{}, err
	}
	e.logger.Warn("inference failed; reporting unknown",
		logging.Error(err),
		logging.String(logging.FieldEventType, "inference_failed"))
	return Verdict{
		Gender:  GenderUnknown,
		Counts:  map[string]int{"male": 0, "female": 0, "madreporite": 0, "anus": 0},
		Message: "inference failed: " + err.Error(),
	}, nil
}
