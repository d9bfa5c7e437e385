package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/service"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	items, err := h.notifications.ListForUser(r.Context(), c.claims.UserID, c.tenantID())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NotificationListResponse{Notifications: items, Unread: unread})
}

// MarkAsRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(r.Context(), id, c.claims.UserID, c.tenantID()); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead handles POST /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	if err := h.notifications.MarkAllAsRead(r.Context(), c.claims.UserID, c.tenantID()); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), id, c.claims.UserID, c.tenantID()); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
