package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdanthq/plantid-go/internal/errors"
)

// StartCamera handles POST /api/v1/camera/start.
func (c *Controller) StartCamera(ctx echo.Context) error {
	if c.cameraManager == nil {
		return c.HandleError(ctx, nil, "camera not configured", http.StatusServiceUnavailable)
	}

	if err := c.cameraManager.Start(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "could not start camera", cameraErrorStatus(err))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"active": true})
}

// StopCamera handles POST /api/v1/camera/stop.
func (c *Controller) StopCamera(ctx echo.Context) error {
	if c.cameraManager == nil {
		return c.HandleError(ctx, nil, "camera not configured", http.StatusServiceUnavailable)
	}

	c.cameraManager.Stop()
	return ctx.JSON(http.StatusOK, map[string]any{"active": false})
}

// cameraErrorStatus maps device error categories to HTTP status codes.
func cameraErrorStatus(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryDevicePermission):
		return http.StatusForbidden
	case errors.IsCategory(err, errors.CategoryDeviceNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryDeviceBusy):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryDeviceConstraint),
		errors.IsCategory(err, errors.CategoryDeviceUnsupported),
		errors.IsCategory(err, errors.CategoryCaptureInactive):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
