package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/verdanthq/plantid-go/internal/notification"
)

// GetNotifications handles GET /api/v1/notifications. It supports type,
// status, limit and offset query parameters.
func (c *Controller) GetNotifications(ctx echo.Context) error {
	filter := &notification.FilterOptions{}

	if t := ctx.QueryParam("type"); t != "" {
		filter.Types = []notification.Type{notification.Type(t)}
	}
	if s := ctx.QueryParam("status"); s != "" {
		filter.Status = []notification.Status{notification.Status(s)}
	}
	if limit, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(ctx.QueryParam("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	notifications, err := c.notifications.List(filter)
	if err != nil {
		return c.HandleError(ctx, err, "could not load notifications", http.StatusInternalServerError)
	}

	unread, _ := c.notifications.UnreadCount()
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread":        unread,
	})
}

// MarkNotificationRead handles PUT /api/v1/notifications/:id/read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	id := ctx.Param("id")

	if err := c.notifications.MarkRead(id); err != nil {
		return c.HandleError(ctx, err, "notification not found", http.StatusNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// DeleteNotification handles DELETE /api/v1/notifications/:id.
func (c *Controller) DeleteNotification(ctx echo.Context) error {
	id := ctx.Param("id")

	if err := c.notifications.Delete(id); err != nil {
		return c.HandleError(ctx, err, "notification not found", http.StatusNotFound)
	}
	return ctx.NoContent(http.StatusNoContent)
}
