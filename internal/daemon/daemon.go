package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"urchin/internal/annotations"
	"urchin/internal/api"
	"urchin/internal/camera"
	"urchin/internal/config"
	"urchin/internal/dataset"
	"urchin/internal/detector"
	"urchin/internal/extractor"
	"urchin/internal/logging"
	"urchin/internal/metadata"
	"urchin/internal/preflight"
	"urchin/internal/tasks"
	"urchin/internal/training"
)

// Daemon owns every long-lived component and the HTTP server.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	version string

	lockPath string
	lock     *flock.Flock

	meta         *metadata.Store
	repo         *annotations.Repository
	builder      *dataset.Builder
	registry     *tasks.Registry
	worker       *tasks.Worker
	journal      *tasks.Journal
	orchestrator *training.Orchestrator
	engine       *detector.Engine
	bridge       *camera.Bridge
	hotplug      *camera.HotplugMonitor
	extractor    *extractor.Extractor

	checks    []preflight.Result
	startedAt time.Time
	running   atomic.Bool
	cancel    context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	meta := metadata.NewStore(cfg.MetadataPath(), logger)
	repo, err := annotations.NewRepository(cfg.DatasetsDir(), meta, logger)
	if err != nil {
		return nil, err
	}

	var journal *tasks.Journal
	if cfg.Tasks.JournalEnabled {
		journal, err = tasks.OpenJournal(cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("open task journal: %w", err)
		}
	}

	registry := tasks.NewRegistry()
	orchestrator := training.New(cfg.Detector, cfg.Paths.LogDir, logger)

	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		version:      version,
		lockPath:     filepath.Join(cfg.Paths.LogDir, "urchind.lock"),
		meta:         meta,
		repo:         repo,
		builder:      dataset.NewBuilder(repo, cfg.BuiltDatasetDir(), cfg.Dataset.Seed, logger),
		registry:     registry,
		worker:       tasks.NewWorker(registry, cfg.Tasks.QueueSize, journal, logger),
		journal:      journal,
		orchestrator: orchestrator,
		engine:       detector.NewEngine(cfg.Detector, orchestrator.ExperimentRoot(), logger),
		bridge:       camera.NewBridge(logger),
		extractor:    extractor.New(cfg.Extractor, logger),
	}
	d.lock = flock.New(d.lockPath)
	d.hotplug = camera.NewHotplugMonitor(logger, nil)
	d.registerTaskHandlers()
	return d, nil
}

// Start acquires the instance lock and launches background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another urchind instance is already running")
	}

	d.checks = preflight.Run(d.cfg)
	for _, check := range d.checks {
		if check.Passed {
			d.logger.Info("preflight check passed", logging.String("check", check.Name))
		} else {
			d.logger.Warn("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.worker.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return err
	}
	_ = d.hotplug.Start(runCtx)

	if err := d.bridge.Initialize(d.cfg.Camera); err != nil {
		d.logger.Warn("camera unavailable at startup",
			logging.Error(err),
			logging.Int("index", d.cfg.Camera.Index),
			logging.String(logging.FieldImpact, "live capture endpoints disabled until a camera is attached"))
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind))
	return nil
}

// Stop shuts background services down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.orchestrator.Running() {
		if err := d.orchestrator.Stop(); err != nil {
			d.logger.Warn("failed to stop training subprocess", logging.Error(err))
		}
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	d.hotplug.Stop()
	d.bridge.Release()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.journal.Close()
}

// Status assembles the wire status view.
func (d *Daemon) Status() api.StatusResponse {
	cameraActive, cameraIndex := d.bridge.Active()
	weights, weightsErr := d.engine.Weights()

	status := api.StatusResponse{
		Running:       d.running.Load(),
		Version:       d.version,
		StartedAt:     d.startedAt,
		ModelReady:    weightsErr == nil,
		WeightsPath:   weights,
		CameraActive:  cameraActive,
		CameraIndex:   cameraIndex,
		QueuedTasks:   d.registry.QueuedCount(),
		RunningTaskID: d.registry.RunningID(),
	}
	for _, check := range d.checks {
		status.Preflight = append(status.Preflight, api.PreflightCheck{
			Name:   check.Name,
			Passed: check.Passed,
			Detail: check.Detail,
		})
	}
	return status
}
