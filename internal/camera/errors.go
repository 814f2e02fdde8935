// Package camera acquires still frames from a local video device or a
// network stream using an ffmpeg grab process.
package camera

import (
	"strings"

	"github.com/verdanthq/plantid-go/internal/errors"
)

// classifyDeviceError maps ffmpeg stderr output to a device error with a
// user-facing message and hint. Unrecognized failures fall through to a
// generic capture error.
func classifyDeviceError(source, stderr string, cause error) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "operation not permitted"):
		return errors.Newf("camera access denied: %s", source).
			Category(errors.CategoryDevicePermission).
			Context("hint", "grant the process access to the video device").
			Build()

	case strings.Contains(lower, "no such file or directory"),
		strings.Contains(lower, "no such device"),
		strings.Contains(lower, "cannot find a proper format"):
		return errors.Newf("camera not found: %s", source).
			Category(errors.CategoryDeviceNotFound).
			Context("hint", "check that the device exists and is connected").
			Build()

	case strings.Contains(lower, "device or resource busy"),
		strings.Contains(lower, "resource busy"):
		return errors.Newf("camera is in use by another application: %s", source).
			Category(errors.CategoryDeviceBusy).
			Context("hint", "close other applications using the camera").
			Build()

	case strings.Contains(lower, "invalid argument"),
		strings.Contains(lower, "cannot set"),
		strings.Contains(lower, "out of range"):
		return errors.Newf("requested capture settings not supported by %s", source).
			Category(errors.CategoryDeviceConstraint).
			Context("hint", "lower the requested resolution").
			Build()

	case strings.Contains(lower, "not supported"),
		strings.Contains(lower, "unknown input format"),
		strings.Contains(lower, "protocol not found"):
		return errors.Newf("camera source not supported: %s", source).
			Category(errors.CategoryDeviceUnsupported).
			Build()
	}

	return errors.New(cause).
		Category(errors.CategoryGeneric).
		Context("source", source).
		Context("stderr_tail", tail(stderr, 300)).
		Build()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
