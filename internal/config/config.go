package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataRoot string `toml:"data_root"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// Detector configures the external object-detector collaborator.
type Detector struct {
	InstallDir        string  `toml:"install_dir"`
	PythonBin         string  `toml:"python_bin"`
	PretrainedWeights string  `toml:"pretrained_weights"`
	ExperimentRoot    string  `toml:"experiment_root"`
	Confidence        float64 `toml:"confidence"`

	// Default training parameters, overridable per request.
	Epochs    int    `toml:"epochs"`
	BatchSize int    `toml:"batch_size"`
	ImageSize int    `toml:"image_size"`
	Workers   int    `toml:"workers"`
	Device    string `toml:"device"`
}

// Camera configures the capture device.
type Camera struct {
	Index      int `toml:"index"`
	Width      int `toml:"width"`
	Height     int `toml:"height"`
	FPS        int `toml:"fps"`
	BufferSize int `toml:"buffer_size"`
}

// Extractor configures video frame extraction.
type Extractor struct {
	FrameInterval           int     `toml:"frame_interval"`
	MinFramesBetweenCapture int     `toml:"min_frames_between_captures"`
	FocusThreshold          float64 `toml:"focus_threshold"`
	SimilarityThreshold     float64 `toml:"similarity_threshold"`
	MinContourArea          int     `toml:"min_contour_area"`
	MaxImages               int     `toml:"max_images"`
}

// Dataset configures train/validation splitting.
type Dataset struct {
	TrainRatio float64 `toml:"train_ratio"`
	Seed       int64   `toml:"seed"`
}

// Tasks configures the background task substrate.
type Tasks struct {
	QueueSize      int    `toml:"queue_size"`
	JournalEnabled bool   `toml:"journal_enabled"`
	JournalPath    string `toml:"journal_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Detector  Detector  `toml:"detector"`
	Camera    Camera    `toml:"camera"`
	Extractor Extractor `toml:"extractor"`
	Dataset   Dataset   `toml:"dataset"`
	Tasks     Tasks     `toml:"tasks"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/urchin/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return
// is the resolved path, the third whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("urchin.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataRoot,
		c.Paths.LogDir,
		c.DatasetsDir(),
		filepath.Join(c.DatasetsDir(), "default", "images"),
		filepath.Join(c.DatasetsDir(), "default", "labels"),
		c.ExtractionsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatasetsDir is the root of all annotation dataset folders.
func (c *Config) DatasetsDir() string {
	return filepath.Join(c.Paths.DataRoot, "datasets")
}

// MetadataPath is the per-image metadata document location.
func (c *Config) MetadataPath() string {
	return filepath.Join(c.Paths.DataRoot, "metadata.json")
}

// BuiltDatasetDir is the materialized train/val dataset root.
func (c *Config) BuiltDatasetDir() string {
	return filepath.Join(c.Paths.DataRoot, "yolo_dataset")
}

// ExtractionsDir holds frames retained from uploaded videos, one
// subdirectory per extraction task.
func (c *Config) ExtractionsDir() string {
	return filepath.Join(c.Paths.DataRoot, "extractions")
}

// JournalPath resolves the task journal database location.
func (c *Config) JournalPath() string {
	if strings.TrimSpace(c.Tasks.JournalPath) != "" {
		return c.Tasks.JournalPath
	}
	return filepath.Join(c.Paths.DataRoot, "tasks.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the given location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
