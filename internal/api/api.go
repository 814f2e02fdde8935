// Package api implements the HTTP API for plant identification, history
// and notifications.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/verdanthq/plantid-go/internal/camera"
	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/history"
	"github.com/verdanthq/plantid-go/internal/logging"
	"github.com/verdanthq/plantid-go/internal/mqttpub"
	"github.com/verdanthq/plantid-go/internal/notification"
	"github.com/verdanthq/plantid-go/internal/observability"
	"github.com/verdanthq/plantid-go/internal/plantid"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	identifier    *plantid.Client
	cameraManager *camera.Manager
	historyStore  *history.Store
	notifications *notification.Service
	publisher     *mqttpub.Client
	metrics       *observability.Metrics

	// identifyBusy is an advisory guard: a second concurrent identify is
	// rejected with 429 rather than queued.
	identifyBusy atomic.Bool

	apiLogger *slog.Logger
	startTime time.Time
}

// New creates the API controller and registers all routes.
func New(settings *conf.Settings,
	identifier *plantid.Client,
	cameraManager *camera.Manager,
	historyStore *history.Store,
	notifications *notification.Service,
	publisher *mqttpub.Client,
	m *observability.Metrics,
) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = customErrorHandler

	c := &Controller{
		Echo:          e,
		Settings:      settings,
		identifier:    identifier,
		cameraManager: cameraManager,
		historyStore:  historyStore,
		notifications: notifications,
		publisher:     publisher,
		metrics:       m,
		apiLogger:     logging.ForService("api"),
		startTime:     time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("12M"))
	if m != nil {
		e.Use(c.metricsMiddleware)
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()

	return c
}

func (c *Controller) initRoutes() {
	c.Group.POST("/identify", c.Identify)

	c.Group.POST("/camera/start", c.StartCamera)
	c.Group.POST("/camera/stop", c.StopCamera)

	c.Group.GET("/history", c.GetHistory)
	c.Group.GET("/history/stats", c.GetHistoryStats)
	c.Group.GET("/history/export", c.ExportHistory)
	c.Group.DELETE("/history/:id", c.DeleteHistoryEntry)
	c.Group.DELETE("/history", c.ClearHistory)

	c.Group.GET("/notifications", c.GetNotifications)
	c.Group.PUT("/notifications/:id/read", c.MarkNotificationRead)
	c.Group.DELETE("/notifications/:id", c.DeleteNotification)

	c.Echo.GET("/health", c.Health)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Start runs the HTTP server on the configured port. It blocks until the
// server stops.
func (c *Controller) Start() error {
	addr := ":" + c.Settings.WebServer.Port
	c.apiLogger.Info("starting API server", "addr", addr)
	return c.Echo.Start(addr)
}

// Shutdown stops the HTTP server gracefully.
func (c *Controller) Shutdown() error {
	return c.Echo.Close()
}

// ErrorResponse is the JSON shape of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse builds an error response with a correlation id for log
// cross-referencing.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Error = message
	}
	return resp
}

// HandleError logs an error and writes the JSON error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, resp)
}

func customErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"
	if httpErr, ok := err.(*echo.HTTPError); ok {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	}

	_ = ctx.JSON(code, NewErrorResponse(err, message, code))
}

func (c *Controller) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		req := ctx.Request()
		path := ctx.Path()
		if path == "" {
			path = req.URL.Path
		}

		status := ctx.Response().Status
		if err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
		}

		c.metrics.HTTP.RecordHTTPRequest(req.Method, path, status, time.Since(start).Seconds())
		c.metrics.HTTP.RecordHTTPResponseSize(req.Method, path, ctx.Response().Size)
		return err
	}
}

// Health reports process liveness and basic component state.
func (c *Controller) Health(ctx echo.Context) error {
	status := map[string]any{
		"status":  "ok",
		"name":    c.Settings.Main.Name,
		"uptime":  time.Since(c.startTime).Round(time.Second).String(),
		"version": conf.Version,
	}
	if c.historyStore != nil {
		if count, err := c.historyStore.Count(); err == nil {
			status["history_entries"] = count
		}
	}
	if c.cameraManager != nil {
		status["camera_active"] = c.cameraManager.Active()
	}
	return ctx.JSON(http.StatusOK, status)
}
