package camera

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/logging"
	"github.com/verdanthq/plantid-go/internal/observability/metrics"
)

const (
	captureTimeout = 15 * time.Second
	probeTimeout   = 5 * time.Second
)

// Manager owns the camera stream lifecycle. Starting while a stream is
// active replaces it; a successful capture stops the stream. Safe for
// concurrent use.
type Manager struct {
	mu     sync.Mutex
	active bool

	source      string
	width       int
	height      int
	ffmpegPath  string
	jpegQuality float64

	metrics *metrics.CameraMetrics
	logger  *slog.Logger

	// runGrab is replaceable in tests
	runGrab func(ctx context.Context, args []string) ([]byte, string, error)
}

// NewManager creates a camera manager from the camera settings. The metrics
// argument may be nil.
func NewManager(settings *conf.Settings, m *metrics.CameraMetrics) *Manager {
	cam := settings.Camera

	ffmpegPath := cam.FfmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	mgr := &Manager{
		source:      cam.Source,
		width:       cam.Width,
		height:      cam.Height,
		ffmpegPath:  ffmpegPath,
		jpegQuality: cam.JpegQuality,
		metrics:     m,
		logger:      logging.ForService("camera"),
	}
	mgr.runGrab = mgr.execGrab
	return mgr
}

// Start acquires the camera. The device is opened with a probe grab so
// permission, missing-device and busy errors surface here instead of at
// capture time. If a stream is already active it is released first, so
// the newest request always wins the device.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("tool", m.ffmpegPath).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		m.logger.Debug("replacing active camera stream", "source", m.source)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	if _, stderr, err := m.runGrab(ctx, m.probeArgs()); err != nil {
		m.active = false
		if m.metrics != nil {
			m.metrics.IncrementCaptureErrors("probe")
			m.metrics.SetStreamActive(false)
		}
		return classifyDeviceError(m.source, stderr, err)
	}
	m.active = true

	if m.metrics != nil {
		m.metrics.SetStreamActive(true)
	}
	m.logger.Info("camera stream started", "source", m.source,
		"resolution", strconv.Itoa(m.width)+"x"+strconv.Itoa(m.height))
	return nil
}

// Stop releases the camera. Stopping an inactive manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if !m.active {
		return
	}
	m.active = false
	if m.metrics != nil {
		m.metrics.SetStreamActive(false)
	}
	m.logger.Info("camera stream stopped", "source", m.source)
}

// Active reports whether a stream is currently acquired.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Capture grabs a single JPEG frame from the active stream and then
// releases the camera. Capturing without an active stream is an error.
func (m *Manager) Capture(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		if m.metrics != nil {
			m.metrics.IncrementCaptureErrors("inactive")
		}
		return nil, errors.Newf("camera not active").
			Category(errors.CategoryCaptureInactive).
			Build()
	}

	start := time.Now()
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, captureTimeout)
		defer cancel()
	}

	frame, stderr, err := m.runGrab(ctx, m.grabArgs())
	if m.metrics != nil {
		m.metrics.ObserveCaptureDuration(time.Since(start).Seconds())
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncrementCaptureErrors("grab")
		}
		return nil, classifyDeviceError(m.source, stderr, err)
	}
	if len(frame) == 0 {
		if m.metrics != nil {
			m.metrics.IncrementCaptureErrors("empty")
		}
		return nil, errors.Newf("no frame data from %s", m.source).
			Category(errors.CategoryGeneric).
			Build()
	}

	if m.metrics != nil {
		m.metrics.IncrementCaptures()
	}
	m.logger.Debug("frame captured", "source", m.source, "bytes", len(frame))

	// A capture ends the session
	m.stopLocked()

	return frame, nil
}

// inputArgs builds the ffmpeg input arguments. Device paths use the V4L2
// demuxer; anything else is treated as a stream URL.
func (m *Manager) inputArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}

	if strings.HasPrefix(m.source, "/dev/") {
		args = append(args, "-f", "v4l2")
		if m.width > 0 && m.height > 0 {
			args = append(args, "-video_size", strconv.Itoa(m.width)+"x"+strconv.Itoa(m.height))
		}
	}
	return append(args, "-i", m.source)
}

// grabArgs builds the ffmpeg arguments for a single-frame JPEG grab.
func (m *Manager) grabArgs() []string {
	return append(m.inputArgs(),
		"-frames:v", "1",
		"-c:v", "mjpeg",
		"-q:v", jpegQScale(m.jpegQuality),
		"-f", "image2",
		"-", // write to stdout
	)
}

// probeArgs builds the ffmpeg arguments for a device open check: one frame
// is read and discarded.
func (m *Manager) probeArgs() []string {
	return append(m.inputArgs(),
		"-frames:v", "1",
		"-f", "null",
		"-",
	)
}

// jpegQScale maps a 0..1 quality to ffmpeg's 2..31 qscale, lower is better.
func jpegQScale(quality float64) string {
	if quality <= 0 || quality > 1 {
		quality = 0.9
	}
	q := 2 + int((1-quality)*29)
	if q > 31 {
		q = 31
	}
	return strconv.Itoa(q)
}

func (m *Manager) execGrab(ctx context.Context, args []string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}
