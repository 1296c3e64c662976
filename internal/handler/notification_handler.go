package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/notification-service/internal/model"
	"github.com/yourorg/notification-service/internal/service"
	"github.com/yourorg/notification-service/internal/utils"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// GetNotifications handles retrieving the user's notifications
// GET /api/v1/users/me/notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.GetString("userID")

	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.GetNotifications(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondError(c, err, "Failed to get notifications")
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// GetStatus handles retrieving the user's unread/read counts
// GET /api/v1/users/me/notifications/status
func (h *NotificationHandler) GetStatus(c *gin.Context) {
	userID := c.GetString("userID")

	status, err := h.notificationService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err, "Failed to get notification status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetNotification handles retrieving a single notification. Ownership
// is checked here: the store lookup itself is not user-scoped.
// GET /api/v1/users/me/notifications/:id
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	notification, err := h.notificationService.GetNotification(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get notification")
		return
	}

	if notification.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, notification)
}

// markRequest carries the id list for bulk mark operations
type markRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// MarkRead handles marking notifications as read
// PUT /api/v1/users/me/notifications/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.mark(c, h.notificationService.MarkRead, "Failed to mark notifications as read")
}

// MarkUnread handles marking notifications as unread
// PUT /api/v1/users/me/notifications/unread
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	h.mark(c, h.notificationService.MarkUnread, "Failed to mark notifications as unread")
}

// MarkSaved handles bookmarking notifications
// PUT /api/v1/users/me/notifications/save
func (h *NotificationHandler) MarkSaved(c *gin.Context) {
	h.mark(c, h.notificationService.MarkSaved, "Failed to mark notifications as saved")
}

// MarkUnsaved handles removing bookmarks from notifications
// PUT /api/v1/users/me/notifications/unsave
func (h *NotificationHandler) MarkUnsaved(c *gin.Context) {
	h.mark(c, h.notificationService.MarkUnsaved, "Failed to mark notifications as unsaved")
}

// createNotificationRequest is the ingestion payload for the internal
// create endpoint
type createNotificationRequest struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id" binding:"required"`
	Origin      string `json:"origin"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Severity    string `json:"severity" binding:"required,oneof=critical high normal low"`
	Topic       string `json:"topic"`
	Scope       string `json:"scope"`
	Icon        string `json:"icon"`
}

// CreateNotification handles persisting a notification on behalf of the
// ingestion pipeline. Scoped notifications collapse into the existing
// live record for their (user, origin, scope) triple.
// POST /api/v1/service/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	saved, err := h.notificationService.SaveNotification(c.Request.Context(), &model.Notification{
		ID:          req.ID,
		UserID:      req.UserID,
		Origin:      req.Origin,
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		Severity:    model.Severity(req.Severity),
		Topic:       req.Topic,
		Scope:       req.Scope,
		Icon:        req.Icon,
	})
	if err != nil {
		h.respondError(c, err, "Failed to save notification")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

func (h *NotificationHandler) mark(
	c *gin.Context,
	op func(ctx context.Context, userID string, ids []string) (int64, error),
	errMsg string,
) {
	userID := c.GetString("userID")

	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	count, err := op(c.Request.Context(), userID, req.IDs)
	if err != nil {
		h.respondError(c, err, errMsg)
		return
	}

	c.JSON(http.StatusOK, model.NotificationMarkResponse{AffectedCount: count})
}

// parseFilter extracts list filter parameters from the query string.
// Returns false after writing a 400 response when a parameter is
// malformed.
func parseFilter(c *gin.Context) (model.NotificationFilter, bool) {
	var filter model.NotificationFilter

	switch c.Query("read") {
	case "":
		filter.Read = model.ReadAny
	case "true":
		filter.Read = model.ReadOnly
	case "false":
		filter.Read = model.UnreadOnly
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid read parameter, expected true or false"})
		return filter, false
	}

	filter.SavedOnly = c.Query("saved") == "true"

	if v := c.Query("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid created_after parameter, expected RFC3339 timestamp"})
			return filter, false
		}
		filter.CreatedAfter = t
	} else if key := c.Query("since"); key != "" {
		preset, ok := model.CreatedAfterPresets[key]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown since preset"})
			return filter, false
		}
		filter.CreatedAfter = preset.Since(time.Now())
	}

	filter.Search = c.Query("q")
	filter.Limit, filter.Offset = utils.ParseLimitOffset(c, 100, 500)

	return filter, true
}

// respondError maps service errors onto HTTP statuses: validation
// failures are 400, not-found is 404, anything else is a storage
// failure surfaced as 500.
func (h *NotificationHandler) respondError(c *gin.Context, err error, logMsg string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
	}
}
