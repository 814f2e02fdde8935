package api

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verdanthq/plantid-go/internal/camera"
	"github.com/verdanthq/plantid-go/internal/history"
	"github.com/verdanthq/plantid-go/internal/notification"
	"github.com/verdanthq/plantid-go/internal/plantid"
)

func publishContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

// identifyRequest is the JSON body alternative to a multipart upload.
// Source "camera" captures a frame from the configured camera instead of
// using an uploaded image.
type identifyRequest struct {
	Source    string `json:"source"`
	ImageData string `json:"imageData"`
}

// identifyResponse wraps the identification envelope with the stored
// history entry id.
type identifyResponse struct {
	Success   bool                 `json:"success"`
	Data      *plantid.PlantRecord `json:"data,omitempty"`
	Fallback  *plantid.PlantRecord `json:"fallback,omitempty"`
	Error     string               `json:"error,omitempty"`
	EntryID   string               `json:"entryId,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Identify handles POST /api/v1/identify. It accepts a multipart image
// upload, a JSON body with a data URI, or a camera capture trigger. A
// second concurrent request is rejected with 429.
func (c *Controller) Identify(ctx echo.Context) error {
	if !c.identifyBusy.CompareAndSwap(false, true) {
		return c.HandleError(ctx, nil, "identification already in progress", http.StatusTooManyRequests)
	}
	defer c.identifyBusy.Store(false)

	image, _, err := c.readImage(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid image", http.StatusBadRequest)
	}

	optimized, err := camera.OptimizeImage(image,
		c.Settings.Camera.MaxWidth, c.Settings.Camera.OptimQuality)
	if err != nil {
		return c.HandleError(ctx, err, "could not process image", http.StatusBadRequest)
	}

	result := c.identifier.Identify(ctx.Request().Context(), optimized, "image/jpeg")

	resp := &identifyResponse{
		Success:   result.Success,
		Data:      result.Data,
		Fallback:  result.Fallback,
		Error:     result.Error,
		Timestamp: result.Timestamp,
	}

	if result.Success && c.historyStore != nil {
		entry, saveErr := c.historyStore.Save(result.Data, result.ImageData)
		if saveErr != nil {
			c.apiLogger.Error("failed to save identification", "error", saveErr)
		} else {
			resp.EntryID = entry.ID
			c.announceIdentification(entry)
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

// readImage extracts the image payload from the request: multipart file
// field "image", JSON data URI, or a camera capture.
func (c *Controller) readImage(ctx echo.Context) ([]byte, string, error) {
	contentType := ctx.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return c.readUpload(ctx)
	}

	var req identifyRequest
	if err := ctx.Bind(&req); err != nil {
		return nil, "", err
	}

	if req.Source == "camera" {
		return c.captureFromCamera(ctx)
	}
	return decodeDataURI(req.ImageData)
}

func (c *Controller) readUpload(ctx echo.Context) ([]byte, string, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		return nil, "", err
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(io.LimitReader(src, camera.MaxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}

	mimeType, err := camera.ValidateUpload(data)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

func (c *Controller) captureFromCamera(ctx echo.Context) ([]byte, string, error) {
	reqCtx := ctx.Request().Context()
	if err := c.cameraManager.Start(reqCtx); err != nil {
		return nil, "", err
	}
	frame, err := c.cameraManager.Capture(reqCtx)
	if err != nil {
		return nil, "", err
	}
	return frame, "image/jpeg", nil
}

// decodeDataURI parses a "data:<mime>;base64,<data>" URI and validates the
// decoded payload.
func decodeDataURI(uri string) ([]byte, string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(uri, prefix) {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "missing image data")
	}

	meta, encoded, found := strings.Cut(uri[len(prefix):], ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "malformed data URI")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid base64 image data")
	}

	mimeType, err := camera.ValidateUpload(data)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// announceIdentification fans a stored identification out to the
// notification service and the MQTT publisher.
func (c *Controller) announceIdentification(entry *history.Entry) {
	if c.notifications != nil {
		title := "Plant identified: " + entry.Record.PlantName
		message := entry.Record.ScientificName
		if _, err := c.notifications.CreateWithComponent(
			notification.TypeIdentification, notification.PriorityLow,
			title, message, "api"); err != nil {
			c.apiLogger.Debug("identification notification dropped", "error", err)
		}
	}

	if c.publisher != nil && c.publisher.IsConnected() {
		go func() {
			ctx, cancel := publishContext()
			defer cancel()
			if err := c.publisher.PublishEntry(ctx, entry); err != nil {
				c.apiLogger.Error("failed to publish identification", "error", err)
			}
		}()
	}
}
