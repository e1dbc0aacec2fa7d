package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"urchin/internal/api"
	"urchin/internal/config"
	"urchin/internal/logging"
)

type stubBackend struct {
	detections []Detection
	err        error
}

func (s stubBackend) Predict(ctx context.Context, weightsPath, imagePath string, confidence float64) ([]Detection, error) {
	return s.detections, s.err
}

func newTestEngine(t *testing.T, backend Backend) *Engine {
	t.Helper()
	base := t.TempDir()
	weights := filepath.Join(base, "yolov5s.pt")
	if err := os.WriteFile(weights, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	cfg := config.Detector{
		PretrainedWeights: weights,
		Confidence:        0.25,
	}
	return NewEngineWithBackend(cfg, filepath.Join(base, "runs"), backend, logging.NewNop())
}

func TestClassifyFileDegradesOnBackendFailure(t *testing.T) {
	engine := newTestEngine(t, stubBackend{err: api.E(api.KindSubprocessFailed, "runner crashed")})

	verdict, err := engine.ClassifyFile(context.Background(), "any.jpg", 0)
	if err != nil {
		t.Fatalf("backend failure must not surface as an error: %v", err)
	}
	if verdict.Gender != GenderUnknown || verdict.Confidence != 0 {
		t.Fatalf("expected degraded unknown verdict, got %+v", verdict)
	}
	if !strings.Contains(verdict.Message, "inference failed") {
		t.Fatalf("message should explain the degradation: %q", verdict.Message)
	}
	if len(verdict.Counts) != 4 {
		t.Fatalf("counts must cover the full vocabulary: %v", verdict.Counts)
	}
}

func TestClassifyFileRefusesWithoutWeights(t *testing.T) {
	cfg := config.Detector{PretrainedWeights: filepath.Join(t.TempDir(), "absent.pt")}
	engine := NewEngineWithBackend(cfg, t.TempDir(), stubBackend{}, logging.NewNop())

	_, err := engine.ClassifyFile(context.Background(), "any.jpg", 0)
	if api.KindOf(err) != api.KindModelNotReady {
		t.Fatalf("expected model_not_ready, got %v", err)
	}
}

func TestClassifyFileDecidesFromDetections(t *testing.T) {
	engine := newTestEngine(t, stubBackend{detections: []Detection{
		{ClassID: 0, Confidence: 0.9},
		{ClassID: 0, Confidence: 0.7},
	}})

	verdict, err := engine.ClassifyFile(context.Background(), "any.jpg", 0)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if verdict.Gender != GenderMale || verdict.Counts["male"] != 2 {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestDetectFileFiltersByConfidence(t *testing.T) {
	engine := newTestEngine(t, stubBackend{detections: []Detection{
		{ClassID: 0, Confidence: 0.9},
		{ClassID: 1, Confidence: 0.3},
	}})

	detections, err := engine.DetectFile(context.Background(), "any.jpg", 0.5)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(detections) != 1 || detections[0].Confidence != 0.9 {
		t.Fatalf("threshold not applied: %v", detections)
	}
}

func TestWeightsCachedUntilInvalidated(t *testing.T) {
	engine := newTestEngine(t, stubBackend{})

	first, err := engine.Weights()
	if err != nil {
		t.Fatalf("weights: %v", err)
	}

	// A newly trained checkpoint outranks the pretrained fallback once
	// the cache is dropped.
	experiment := filepath.Join(engine.experimentRoot, "papillae_detector", "weights")
	if err := os.MkdirAll(experiment, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	best := filepath.Join(experiment, "best.pt")
	if err := os.WriteFile(best, []byte("trained"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cached, err := engine.Weights()
	if err != nil || cached != first {
		t.Fatalf("cache dropped too early: %q %v", cached, err)
	}

	engine.InvalidateWeights()
	resolved, err := engine.Weights()
	if err != nil {
		t.Fatalf("weights after invalidate: %v", err)
	}
	if resolved != best {
		t.Fatalf("expected %q after invalidate, got %q", best, resolved)
	}
}
