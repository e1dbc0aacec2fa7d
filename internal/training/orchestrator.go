package training

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"urchin/internal/api"
	"urchin/internal/config"
	"urchin/internal/logging"
)

// Params configures one training run. Zero values fall back to the
// configured defaults.
type Params struct {
	Weights   string
	Epochs    int
	BatchSize int
	ImageSize int
	Workers   int
	Device    string
	Name      string
	ExistOK   bool
	DataPath  string
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Running      bool
	StartedAt    *time.Time
	Elapsed      time.Duration
	CurrentEpoch int
	TotalEpochs  int
	Progress     float64
	Metrics      map[string]float64
	Artifacts    map[string]string
	LogPath      string
}

// Orchestrator runs at most one detector training subprocess at a time.
type Orchestrator struct {
	cfg    config.Detector
	logDir string
	logger *slog.Logger

	mu         sync.Mutex
	running    bool
	cmd        *exec.Cmd
	startedAt  time.Time
	current    int
	total      int
	metrics    *Metrics
	logPath    string
	stopAsked  bool
}

// New constructs an orchestrator.
func New(cfg config.Detector, logDir string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		logDir: logDir,
		logger: logging.NewComponentLogger(logger, "training"),
	}
}

const logTailLines = 20

// Run launches training and blocks until the subprocess exits. It
// refuses to start while another run is in flight. progress receives
// percent-complete updates derived from parsed epoch lines.
func (o *Orchestrator) Run(ctx context.Context, params Params, progress func(float64, string)) error {
	if progress == nil {
		progress = func(float64, string) {}
	}
	params = o.applyDefaults(params)

	logPath := filepath.Join(o.logDir, fmt.Sprintf("yolo_training_%s.log", time.Now().UTC().Format("20060102_150405")))

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return api.E(api.KindConflict, "a training run is already in progress")
	}

	cmd := exec.CommandContext(ctx, o.cfg.PythonBin, o.buildArgs(params)...)
	cmd.Dir = o.cfg.InstallDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		o.mu.Unlock()
		return api.Wrap(api.KindIOError, err, "stdout pipe")
	}
	cmd.Stderr = cmd.Stdout

	logFile, err := os.Create(logPath)
	if err != nil {
		o.mu.Unlock()
		return api.Wrap(api.KindIOError, err, "create training log")
	}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		o.mu.Unlock()
		return api.Wrap(api.KindSubprocessFailed, err, "start training subprocess")
	}

	o.running = true
	o.cmd = cmd
	o.startedAt = time.Now().UTC()
	o.current = 0
	o.total = params.Epochs
	o.metrics = nil
	o.logPath = logPath
	o.stopAsked = false
	o.mu.Unlock()

	o.logger.Info("training started",
		logging.String("weights", params.Weights),
		logging.Int("epochs", params.Epochs),
		logging.String("log", logPath))

	tail := make([]string, 0, logTailLines)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(logFile, line)

		tail = append(tail, line)
		if len(tail) > logTailLines {
			tail = tail[1:]
		}

		update := parseLine(line)
		if update.hasEpoch {
			o.mu.Lock()
			o.current = update.currentEpoch
			o.total = update.totalEpochs
			o.mu.Unlock()
			progress(float64(update.currentEpoch)/float64(update.totalEpochs)*100,
				fmt.Sprintf("epoch %d/%d", update.currentEpoch, update.totalEpochs))
		}
		if update.hasMetrics {
			metrics := update.metrics
			o.mu.Lock()
			o.metrics = &metrics
			o.mu.Unlock()
		}
	}
	_ = logFile.Close()

	waitErr := cmd.Wait()

	o.mu.Lock()
	stopped := o.stopAsked
	o.running = false
	o.cmd = nil
	o.mu.Unlock()

	if waitErr != nil {
		if stopped || ctx.Err() != nil {
			return context.Canceled
		}
		o.logger.Error("training subprocess failed", logging.Error(waitErr))
		return api.E(api.KindSubprocessFailed, "training exited abnormally: %v\n%s", waitErr, strings.Join(tail, "\n"))
	}

	o.logger.Info("training completed", logging.Duration("elapsed", time.Since(o.startedAt)))
	return nil
}

func (o *Orchestrator) applyDefaults(params Params) Params {
	if params.Weights == "" {
		params.Weights = o.cfg.PretrainedWeights
	}
	if params.Epochs <= 0 {
		params.Epochs = o.cfg.Epochs
	}
	if params.BatchSize <= 0 {
		params.BatchSize = o.cfg.BatchSize
	}
	if params.ImageSize <= 0 {
		params.ImageSize = o.cfg.ImageSize
	}
	if params.Workers <= 0 {
		params.Workers = o.cfg.Workers
	}
	if params.Device == "" {
		params.Device = o.cfg.Device
	}
	if params.Name == "" {
		params.Name = "papillae_detector"
	}
	return params
}

func (o *Orchestrator) buildArgs(params Params) []string {
	args := []string{
		"train.py",
		"--img", strconv.Itoa(params.ImageSize),
		"--batch", strconv.Itoa(params.BatchSize),
		"--epochs", strconv.Itoa(params.Epochs),
		"--data", params.DataPath,
		"--weights", params.Weights,
		"--workers", strconv.Itoa(params.Workers),
		"--name", params.Name,
	}
	if params.ExistOK {
		args = append(args, "--exist-ok")
	}
	if params.Device != "" {
		args = append(args, "--device", params.Device)
	}
	return args
}

// Stop terminates the in-flight training subprocess, if any.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running || o.cmd == nil || o.cmd.Process == nil {
		return api.E(api.KindConflict, "no training run in progress")
	}
	o.stopAsked = true
	if err := o.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return o.cmd.Process.Kill()
	}
	return nil
}

// Running reports whether a training subprocess is in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Status returns a snapshot including discovered result artifacts.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	status := Status{
		Running:      o.running,
		CurrentEpoch: o.current,
		TotalEpochs:  o.total,
		LogPath:      o.logPath,
	}
	if o.running {
		started := o.startedAt
		status.StartedAt = &started
		status.Elapsed = time.Since(started)
	}
	if o.total > 0 {
		status.Progress = float64(o.current) / float64(o.total) * 100
	}
	if o.metrics != nil {
		status.Metrics = o.metrics.Map()
	}
	o.mu.Unlock()

	if dir, err := LatestExperiment(o.ExperimentRoot()); err == nil {
		status.Artifacts = Artifacts(dir)
	}
	return status
}

// ExperimentRoot resolves where the detector writes experiment outputs.
func (o *Orchestrator) ExperimentRoot() string {
	if strings.TrimSpace(o.cfg.ExperimentRoot) != "" {
		return o.cfg.ExperimentRoot
	}
	return filepath.Join(o.cfg.InstallDir, "runs", "train")
}
