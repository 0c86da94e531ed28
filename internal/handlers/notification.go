package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/citizenvoice/engagement-server/internal/middleware"
	"github.com/citizenvoice/engagement-server/internal/services"
)

// NotificationHandler handles the authenticated user's notification feed
type NotificationHandler struct {
	notifSvc *services.NotificationService
	logger   *zap.SugaredLogger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(ns *services.NotificationService, logger *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{notifSvc: ns, logger: logger}
}

// List handles GET /api/v1/notifications?page=&limit=&unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	page, limit := pageParams(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, meta, unread, err := h.notifSvc.List(r.Context(), user.ID, page, limit, unreadOnly)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"pagination":    meta,
		"unreadCount":   unread,
	})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	count, err := h.notifSvc.UnreadCount(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load unread count")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

// MarkRead handles PATCH /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid notification id")
		return
	}

	if err := h.notifSvc.MarkRead(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to mark notification read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllRead handles PATCH /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	if err := h.notifSvc.MarkAllRead(r.Context(), user.ID); err != nil {
		respondServiceError(w, h.logger, err, "Failed to mark notifications read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

// Delete handles DELETE /api/v1/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid notification id")
		return
	}

	if err := h.notifSvc.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}
