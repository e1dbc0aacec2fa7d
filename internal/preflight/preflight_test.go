package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"urchin/internal/config"
)

func resultByName(t *testing.T, results []Result, name string) Result {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("check %q missing from %v", name, results)
	return Result{}
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataRoot = filepath.Join(base, "data")
	cfg.Detector.InstallDir = filepath.Join(base, "yolov5")
	cfg.Detector.PretrainedWeights = filepath.Join(base, "yolov5", "yolov5s.pt")
	if err := os.MkdirAll(cfg.Paths.DataRoot, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return &cfg
}

func TestRunCoversAllChecks(t *testing.T) {
	cfg := newTestConfig(t)
	results := Run(cfg)
	for _, name := range []string{"python", "detector_install", "pretrained_weights", "data_root", "disk_space"} {
		resultByName(t, results, name)
	}
}

func TestDetectorInstallCheck(t *testing.T) {
	cfg := newTestConfig(t)

	r := resultByName(t, Run(cfg), "detector_install")
	if r.Passed {
		t.Fatal("missing install dir should fail")
	}

	if err := os.MkdirAll(cfg.Detector.InstallDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	entry := filepath.Join(cfg.Detector.InstallDir, "train.py")
	if err := os.WriteFile(entry, []byte("# stub"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r = resultByName(t, Run(cfg), "detector_install")
	if !r.Passed {
		t.Fatalf("install with train.py should pass: %s", r.Detail)
	}
}

func TestWeightsCheck(t *testing.T) {
	cfg := newTestConfig(t)

	r := resultByName(t, Run(cfg), "pretrained_weights")
	if r.Passed {
		t.Fatal("missing weights should fail")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Detector.PretrainedWeights), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cfg.Detector.PretrainedWeights, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r = resultByName(t, Run(cfg), "pretrained_weights")
	if !r.Passed {
		t.Fatalf("existing weights should pass: %s", r.Detail)
	}

	cfg.Detector.PretrainedWeights = ""
	r = resultByName(t, Run(cfg), "pretrained_weights")
	if r.Passed {
		t.Fatal("unconfigured weights should fail")
	}
}

func TestDataRootCheck(t *testing.T) {
	cfg := newTestConfig(t)
	r := resultByName(t, Run(cfg), "data_root")
	if !r.Passed {
		t.Fatalf("writable temp dir should pass: %s", r.Detail)
	}

	cfg.Paths.DataRoot = filepath.Join(cfg.Paths.DataRoot, "does-not-exist")
	r = resultByName(t, Run(cfg), "data_root")
	if r.Passed {
		t.Fatal("missing data root should fail")
	}
}

func TestPassed(t *testing.T) {
	all := []Result{{Passed: true}, {Passed: true}}
	if !Passed(all) {
		t.Fatal("all-pass slice should report passed")
	}
	if Passed(append(all, Result{Passed: false})) {
		t.Fatal("one failure must fail the set")
	}
	if !Passed(nil) {
		t.Fatal("empty result set is vacuously passed")
	}
}
