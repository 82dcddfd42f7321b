package handlers

import (
	"net/http"
	"strconv"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/models/notification/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationHandler handles HTTP requests related to in-app notifications.
type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(ns service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: ns,
		logger:              logger.Named("NotificationHandler"),
	}
}

// GetNotificationsByUser godoc
// @Summary Get user notifications
// @Description Newest first, with pagination and an optional unread filter
// @Tags notifications
// @Produce json
// @Param limit query int false "Number of notifications to return (default 20, max 100)"
// @Param offset query int false "Offset for pagination (default 0)"
// @Param status query string false "Filter by status ('unread')"
// @Success 200 {array} types.Notification
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /notifications [get]
// @Security BearerAuth
func (h *NotificationHandler) GetNotificationsByUser(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	limitStr := c.DefaultQuery("limit", "20")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		h.logger.Debug("Invalid limit query parameter, using default", zap.String("providedLimit", limitStr))
		limit = 20
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		h.logger.Debug("Invalid offset query parameter, using default", zap.String("providedOffset", offsetStr))
		offset = 0
	}

	unreadOnly := false
	switch c.Query("status") {
	case "":
	case "unread":
		unreadOnly = true
	default:
		_ = c.Error(apperrors.ValidationFailed("Invalid status parameter", "use 'unread' or omit it"))
		return
	}

	notifications, err := h.notificationService.GetNotifications(c.Request.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// GetUnreadNotificationCount godoc
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int
// @Router /notifications/unread-count [get]
// @Security BearerAuth
func (h *NotificationHandler) GetUnreadNotificationCount(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	count, err := h.notificationService.GetUnreadNotificationCount(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationAsRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Param notificationId path string true "Notification ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /notifications/{notificationId}/read [patch]
// @Security BearerAuth
func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	notificationID, ok := parseNotificationID(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkNotificationAsRead(c.Request.Context(), userID, notificationID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /notifications/read-all [patch]
// @Security BearerAuth
func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllNotificationsAsRead(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags notifications
// @Param notificationId path string true "Notification ID (UUID)"
// @Success 204 "No Content"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /notifications/{notificationId} [delete]
// @Security BearerAuth
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	notificationID, ok := parseNotificationID(c)
	if !ok {
		return
	}

	if err := h.notificationService.DeleteNotification(c.Request.Context(), userID, notificationID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckUpcoming godoc
// @Summary Run the upcoming-trip reminder check
// @Description Called at session start; emits day-before and trip-day reminders not yet sent
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int
// @Router /notifications/check-upcoming [post]
// @Security BearerAuth
func (h *NotificationHandler) CheckUpcoming(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	sent, err := h.notificationService.CheckUpcoming(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func parseNotificationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid notification ID format", err.Error()))
		return uuid.Nil, false
	}
	return id, true
}
