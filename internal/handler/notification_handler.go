package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/pagination"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications", middleware.RequireAuth())
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.CountUnread)
		notifications.PUT("/:id/read", h.MarkAsRead)
		notifications.PUT("/read-all", h.MarkAllAsRead)
	}
}

// ListNotifications lists the caller's notifications
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int   false  "Page number (default: 1)"
// @Param        limit        query     int   false  "Items per page (default: 20)"
// @Param        unread_only  query     bool  false  "Only unread notifications"
// @Success      200          {object}  response.Response
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	params := pagination.Parse(c)
	unreadOnly := c.Query("unread_only") == "true"

	notifications, total, err := h.notificationService.ListForUser(c.Request.Context(), principalFrom(c), unreadOnly, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, notifications, params.Page, params.Limit, total))
}

// CountUnread returns the caller's unread notification count
// @Summary      Count unread notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/notifications/unread-count [get]
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	count, err := h.notificationService.CountUnread(c.Request.Context(), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]int64{"unread": count}))
}

// MarkAsRead marks one of the caller's notifications as read
// @Summary      Mark notification read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if err := h.notificationService.MarkAsRead(c.Request.Context(), principalFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Notification marked as read"))
}

// MarkAllAsRead marks every unread notification of the caller as read
// @Summary      Mark all notifications read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/notifications/read-all [put]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.notificationService.MarkAllAsRead(c.Request.Context(), principalFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "All notifications marked as read"))
}
