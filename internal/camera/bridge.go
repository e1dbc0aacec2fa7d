package camera

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"urchin/internal/api"
	"urchin/internal/config"
	"urchin/internal/logging"
)

// Bridge manages one capture device. At most one Bridge should exist per
// process; overlapping device opens are serialized by initMu.
type Bridge struct {
	logger *slog.Logger

	// initMu serializes initialize/switch/release sequences.
	initMu sync.Mutex

	// mu guards the latest-frame slot and lifecycle flags.
	mu      sync.Mutex
	capture *gocv.VideoCapture
	latest  gocv.Mat
	active  config.Camera
	running bool
	quit    chan struct{}
	done    chan struct{}
}

// NewBridge constructs a released bridge.
func NewBridge(logger *slog.Logger) *Bridge {
	return &Bridge{
		logger: logging.NewComponentLogger(logger, "camera"),
		latest: gocv.NewMat(),
	}
}

// Open backends tried in order. V4L2 first on the target platform, then
// whatever the library picks.
var captureBackends = []gocv.VideoCaptureAPI{
	gocv.VideoCaptureV4L2,
	gocv.VideoCaptureGstreamer,
	gocv.VideoCaptureAny,
}

const (
	testFrameRetries = 5
	testFrameDelay   = 200 * time.Millisecond
	captureInterval  = 10 * time.Millisecond
	switchDrain      = 500 * time.Millisecond
	releaseTimeout   = 2 * time.Second
)

// Initialize opens the device and starts the capture loop.
func (b *Bridge) Initialize(params config.Camera) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	return b.initializeLocked(params)
}

func (b *Bridge) initializeLocked(params config.Camera) error {
	b.releaseLocked()

	capture, err := b.open(params)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.capture = capture
	b.active = params
	b.running = true
	b.quit = make(chan struct{})
	b.done = make(chan struct{})
	quit, done := b.quit, b.done
	b.mu.Unlock()

	go b.captureLoop(quit, done)

	b.logger.Info("camera initialized",
		logging.Int("index", params.Index),
		logging.Int("width", params.Width),
		logging.Int("height", params.Height),
		logging.Int("fps", params.FPS))
	return nil
}

// open tries each backend in order and verifies the device delivers a
// frame before declaring success.
func (b *Bridge) open(params config.Camera) (*gocv.VideoCapture, error) {
	var lastErr error
	for _, backend := range captureBackends {
		capture, err := gocv.VideoCaptureDeviceWithAPI(params.Index, backend)
		if err != nil {
			lastErr = err
			continue
		}
		if !capture.IsOpened() {
			capture.Close()
			lastErr = fmt.Errorf("backend %d did not open device %d", int(backend), params.Index)
			continue
		}

		capture.Set(gocv.VideoCaptureFrameWidth, float64(params.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(params.Height))
		capture.Set(gocv.VideoCaptureFPS, float64(params.FPS))
		if params.BufferSize > 0 {
			capture.Set(gocv.VideoCaptureBufferSize, float64(params.BufferSize))
		}

		if b.testFrame(capture) {
			return capture, nil
		}
		capture.Close()
		lastErr = fmt.Errorf("device %d opened but produced no frames", params.Index)
	}
	return nil, api.Wrap(api.KindCameraUnavailable, lastErr, fmt.Sprintf("open camera %d", params.Index))
}

func (b *Bridge) testFrame(capture *gocv.VideoCapture) bool {
	frame := gocv.NewMat()
	defer frame.Close()
	for attempt := 0; attempt < testFrameRetries; attempt++ {
		if capture.Read(&frame) && !frame.Empty() {
			return true
		}
		time.Sleep(testFrameDelay)
	}
	return false
}

// captureLoop keeps the latest-frame slot fresh at roughly 100 Hz.
func (b *Bridge) captureLoop(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	frame := gocv.NewMat()
	defer frame.Close()

	ticker := time.NewTicker(captureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		capture := b.capture
		b.mu.Unlock()
		if capture == nil {
			return
		}

		if !capture.Read(&frame) || frame.Empty() {
			continue
		}

		b.mu.Lock()
		frame.CopyTo(&b.latest)
		b.mu.Unlock()
	}
}

// GetFrame returns a copy of the most recent frame.
func (b *Bridge) GetFrame() (gocv.Mat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running || b.latest.Empty() {
		return gocv.Mat{}, api.E(api.KindCameraUnavailable, "no frame available")
	}
	return b.latest.Clone(), nil
}

// GetJPEG returns the most recent frame encoded as JPEG bytes.
func (b *Bridge) GetJPEG() ([]byte, error) {
	frame, err := b.GetFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, api.Wrap(api.KindIOError, err, "encode frame")
	}
	defer buf.Close()

	encoded := make([]byte, buf.Len())
	copy(encoded, buf.GetBytes())
	return encoded, nil
}

// Switch moves capture to a different device index, restoring the
// previous device when the new one cannot be opened.
func (b *Bridge) Switch(params config.Camera) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	b.mu.Lock()
	previous := b.active
	wasRunning := b.running
	b.mu.Unlock()

	b.releaseLocked()
	time.Sleep(switchDrain)

	if err := b.initializeLocked(params); err != nil {
		if wasRunning {
			if restoreErr := b.initializeLocked(previous); restoreErr != nil {
				b.logger.Error("failed to restore previous camera",
					logging.Error(restoreErr),
					logging.Int("index", previous.Index),
					logging.String(logging.FieldImpact, "no camera active"))
			}
		}
		return err
	}
	return nil
}

// Release stops the capture loop and closes the device.
func (b *Bridge) Release() {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	b.releaseLocked()
}

func (b *Bridge) releaseLocked() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.quit)
	done := b.done
	capture := b.capture
	b.capture = nil
	b.mu.Unlock()

	select {
	case <-done:
	case <-time.After(releaseTimeout):
		b.logger.Warn("capture loop did not stop in time",
			logging.String(logging.FieldEventType, "capture_loop_stall"))
	}

	if capture != nil {
		_ = capture.Close()
	}
	b.logger.Info("camera released")
}

// Active reports the running flag and the current device index.
func (b *Bridge) Active() (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running, b.active.Index
}
