package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if cfg.Dataset.TrainRatio != 0.8 || cfg.Detector.Epochs != 100 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !filepath.IsAbs(cfg.Paths.DataRoot) {
		t.Fatalf("data root not expanded: %q", cfg.Paths.DataRoot)
	}
}

func TestLoadOverridesFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_root = "` + filepath.Join(dir, "data") + `"
api_bind = "0.0.0.0:9000"

[dataset]
train_ratio = 0.7

[detector]
epochs = 25
confidence = 0.4

[tasks]
journal_enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("file not detected")
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api bind not overridden: %q", cfg.Paths.APIBind)
	}
	if cfg.Dataset.TrainRatio != 0.7 || cfg.Detector.Epochs != 25 || cfg.Detector.Confidence != 0.4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Tasks.JournalEnabled {
		t.Fatal("journal_enabled override lost")
	}
	// Untouched sections keep their defaults.
	if cfg.Camera.Width != 1280 || cfg.Extractor.MaxImages != 50 {
		t.Fatalf("defaults clobbered: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"train_ratio": "[dataset]\ntrain_ratio = 1.5\n",
		"confidence":  "[detector]\nconfidence = 2.0\n",
		"epochs":      "[detector]\nepochs = 0\n",
		"queue_size":  "[tasks]\nqueue_size = -1\n",
		"camera":      "[camera]\nindex = -2\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		_, _, _, err := Load(path)
		if err == nil {
			t.Errorf("%s: invalid value accepted", name)
			continue
		}
		if !strings.Contains(err.Error(), "invalid configuration") {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths\ndata_root = oops"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("malformed TOML accepted")
	}
}

func TestPathHelpers(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataRoot = "/srv/urchin"

	if got := cfg.DatasetsDir(); got != "/srv/urchin/datasets" {
		t.Fatalf("DatasetsDir = %q", got)
	}
	if got := cfg.BuiltDatasetDir(); got != "/srv/urchin/yolo_dataset" {
		t.Fatalf("BuiltDatasetDir = %q", got)
	}
	if got := cfg.ExtractionsDir(); got != "/srv/urchin/extractions" {
		t.Fatalf("ExtractionsDir = %q", got)
	}
	if got := cfg.MetadataPath(); got != "/srv/urchin/metadata.json" {
		t.Fatalf("MetadataPath = %q", got)
	}

	if got := cfg.JournalPath(); got != "/srv/urchin/tasks.db" {
		t.Fatalf("default JournalPath = %q", got)
	}
	cfg.Tasks.JournalPath = "/var/lib/urchin/journal.db"
	if got := cfg.JournalPath(); got != "/var/lib/urchin/journal.db" {
		t.Fatalf("explicit JournalPath = %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataRoot = filepath.Join(t.TempDir(), "data")
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.DataRoot, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, dir := range []string{
		cfg.DatasetsDir(),
		filepath.Join(cfg.DatasetsDir(), "default", "images"),
		filepath.Join(cfg.DatasetsDir(), "default", "labels"),
		cfg.ExtractionsDir(),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing: %v", dir, err)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config does not load: exists=%v err=%v", exists, err)
	}
}
