package camera

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/errors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	settings := &conf.Settings{}
	settings.Camera.Source = "/dev/video0"
	settings.Camera.Width = 1280
	settings.Camera.Height = 720
	settings.Camera.JpegQuality = 0.9
	// Any executable on PATH satisfies the tool check
	settings.Camera.FfmpegPath = "sh"

	mgr := NewManager(settings, nil)
	mgr.runGrab = func(ctx context.Context, args []string) ([]byte, string, error) {
		return []byte{0xff, 0xd8, 0xff}, "", nil
	}
	return mgr
}

func TestCaptureWithoutStart(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Capture(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCaptureInactive))
	assert.Contains(t, err.Error(), "camera not active")
}

func TestCaptureStopsStream(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Start(context.Background()))
	require.True(t, mgr.Active())

	frame, err := mgr.Capture(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, frame)

	// A successful capture releases the camera
	assert.False(t, mgr.Active())

	_, err = mgr.Capture(context.Background())
	assert.True(t, errors.IsCategory(err, errors.CategoryCaptureInactive))
}

func TestStartReplacesActiveStream(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Start(context.Background()))
	require.NoError(t, mgr.Start(context.Background()))
	assert.True(t, mgr.Active())

	mgr.Stop()
	assert.False(t, mgr.Active())
}

func TestStopIsIdempotent(t *testing.T) {
	mgr := newTestManager(t)

	mgr.Stop()
	mgr.Stop()
	assert.False(t, mgr.Active())
}

func TestStartOpensDevice(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		category errors.ErrorCategory
	}{
		{"not_found", "/dev/video0: No such file or directory", errors.CategoryDeviceNotFound},
		{"permission", "/dev/video0: Permission denied", errors.CategoryDevicePermission},
		{"busy", "/dev/video0: Device or resource busy", errors.CategoryDeviceBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager(t)
			mgr.runGrab = func(ctx context.Context, args []string) ([]byte, string, error) {
				return nil, tt.stderr, errors.NewStd("exit status 1")
			}

			err := mgr.Start(context.Background())

			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category),
				"expected category %s, got %v", tt.category, err)
			assert.False(t, mgr.Active())
		})
	}
}

func TestCaptureClassifiesDeviceErrors(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		category errors.ErrorCategory
	}{
		{"permission", "/dev/video0: Permission denied", errors.CategoryDevicePermission},
		{"not_found", "/dev/video0: No such file or directory", errors.CategoryDeviceNotFound},
		{"busy", "/dev/video0: Device or resource busy", errors.CategoryDeviceBusy},
		{"constraint", "[video4linux2] Cannot set frame size: Invalid argument", errors.CategoryDeviceConstraint},
		{"unsupported", "Protocol not found", errors.CategoryDeviceUnsupported},
		{"generic", "something unexpected happened", errors.CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager(t)

			require.NoError(t, mgr.Start(context.Background()))
			mgr.runGrab = func(ctx context.Context, args []string) ([]byte, string, error) {
				return nil, tt.stderr, errors.NewStd("exit status 1")
			}
			_, err := mgr.Capture(context.Background())

			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category),
				"expected category %s, got %v", tt.category, err)
		})
	}
}

func TestCaptureEmptyFrame(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Start(context.Background()))
	mgr.runGrab = func(ctx context.Context, args []string) ([]byte, string, error) {
		return nil, "", nil
	}
	_, err := mgr.Capture(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no frame data")
}

func TestGrabArgs(t *testing.T) {
	t.Run("v4l2_device", func(t *testing.T) {
		mgr := newTestManager(t)
		args := mgr.grabArgs()

		assert.Contains(t, args, "-f")
		assert.Contains(t, args, "v4l2")
		assert.Contains(t, args, "-video_size")
		assert.Contains(t, args, "1280x720")
		assert.Contains(t, args, "/dev/video0")
		assert.Equal(t, "-", args[len(args)-1])
	})

	t.Run("stream_url", func(t *testing.T) {
		mgr := newTestManager(t)
		mgr.source = "rtsp://cam.local/stream"
		args := mgr.grabArgs()

		assert.NotContains(t, args, "v4l2")
		assert.Contains(t, args, "rtsp://cam.local/stream")
	})

	t.Run("probe_discards_output", func(t *testing.T) {
		mgr := newTestManager(t)
		args := mgr.probeArgs()

		assert.Contains(t, args, "null")
		assert.NotContains(t, args, "mjpeg")
		assert.Equal(t, "-", args[len(args)-1])
	})
}

func TestJpegQScale(t *testing.T) {
	tests := []struct {
		quality float64
		want    string
	}{
		{1.0, "2"},
		{0.9, "4"},
		{0.5, "16"},
		{0, "4"},   // invalid falls back to 0.9
		{1.5, "4"}, // invalid falls back to 0.9
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, jpegQScale(tt.quality), "quality %v", tt.quality)
	}
}
