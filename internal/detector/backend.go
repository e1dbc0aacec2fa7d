package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"urchin/internal/api"
	"urchin/internal/config"
)

// Backend runs the external detector on a single image file.
type Backend interface {
	Predict(ctx context.Context, weightsPath, imagePath string, confidence float64) ([]Detection, error)
}

// runnerScript is the JSON-line prediction entry point shipped alongside
// the detector install.
const runnerScript = "predict_json.py"

// cliBackend shells out to the detector's prediction runner. The runner
// prints one JSON object per detection on stdout; anything else on a
// line is ignored.
type cliBackend struct {
	cfg config.Detector
}

// NewCLIBackend constructs the subprocess-based backend.
func NewCLIBackend(cfg config.Detector) Backend {
	return &cliBackend{cfg: cfg}
}

// runnerDetection is the runner's wire form. Boxes arrive as pixel-space
// corner coordinates.
type runnerDetection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

func (b *cliBackend) Predict(ctx context.Context, weightsPath, imagePath string, confidence float64) ([]Detection, error) {
	cmd := exec.CommandContext(ctx, b.cfg.PythonBin, runnerScript,
		"--weights", weightsPath,
		"--image", imagePath,
		"--conf", strconv.FormatFloat(confidence, 'f', -1, 64),
	)
	cmd.Dir = b.cfg.InstallDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, api.Wrap(api.KindIOError, err, "stdout pipe")
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, api.Wrap(api.KindSubprocessFailed, err, "start prediction runner")
	}

	var detections []Detection
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var raw runnerDetection
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		detections = append(detections, Detection{
			Box:        raw.Box,
			Confidence: raw.Confidence,
			ClassID:    raw.ClassID,
		})
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, api.E(api.KindSubprocessFailed, "prediction runner failed: %s", detail)
	}
	return detections, nil
}
