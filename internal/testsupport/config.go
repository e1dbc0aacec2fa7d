// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"urchin/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataRoot = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Detector.InstallDir = filepath.Join(base, "yolov5")
	cfg.Detector.PretrainedWeights = filepath.Join(base, "yolov5", "yolov5s.pt")
	cfg.Dataset.Seed = 1
	cfg.Tasks.JournalEnabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithSeed overrides the dataset split seed.
func WithSeed(seed int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Dataset.Seed = seed
	}
}

// WithJournal enables the task journal under the test's data root.
func WithJournal() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tasks.JournalEnabled = true
	}
}
