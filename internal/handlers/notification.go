package handlers

import (
	"net/http"

	"elim/internal/middleware"
	"elim/internal/services"
	"elim/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	profileID := middleware.CurrentProfileID(c)
	notifications, err := h.notifications.List(c.Request.Context(), profileID, 50)
	if err != nil {
		abortJSON(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(c.Request.Context(), profileID)
	if err != nil {
		abortJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	found, err := h.notifications.MarkRead(c.Request.Context(), middleware.CurrentProfileID(c), id)
	if err != nil {
		abortJSON(c, err)
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentProfileID(c)); err != nil {
		abortJSON(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
