package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/history"
)

// GetHistory handles GET /api/v1/history. The optional query parameter
// filters entries by name, scientific name, family or description.
func (c *Controller) GetHistory(ctx echo.Context) error {
	query := ctx.QueryParam("query")
	if query == "" {
		query = ctx.QueryParam("q")
	}

	entries, err := c.historyStore.Filter(query)
	if err != nil {
		return c.HandleError(ctx, err, "could not load history", http.StatusInternalServerError)
	}

	if entries == nil {
		entries = []history.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// GetHistoryStats handles GET /api/v1/history/stats.
func (c *Controller) GetHistoryStats(ctx echo.Context) error {
	stats, err := c.historyStore.ComputeStats()
	if err != nil {
		return c.HandleError(ctx, err, "could not compute history stats", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, stats)
}

// ExportHistory handles GET /api/v1/history/export. The response is a JSON
// attachment named after the export date.
func (c *Controller) ExportHistory(ctx echo.Context) error {
	filename := history.ExportFilename(time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx.Response().WriteHeader(http.StatusOK)

	if err := c.historyStore.Export(ctx.Response()); err != nil {
		c.apiLogger.Error("history export failed", "error", err)
		return err
	}
	return nil
}

// DeleteHistoryEntry handles DELETE /api/v1/history/:id.
func (c *Controller) DeleteHistoryEntry(ctx echo.Context) error {
	id := ctx.Param("id")

	if err := c.historyStore.Delete(id); err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "history entry not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "could not delete history entry", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ClearHistory handles DELETE /api/v1/history.
func (c *Controller) ClearHistory(ctx echo.Context) error {
	if err := c.historyStore.Clear(); err != nil {
		return c.HandleError(ctx, err, "could not clear history", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}
