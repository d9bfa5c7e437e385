package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/service"
)

// TenantHandler serves the tenant-wide resources: the activity feed, the
// admin settings and the user directory.
type TenantHandler struct {
	activities service.ActivityService
	settings   service.SettingsService
	users      service.UserService
	feedLimit  int
	logger     *slog.Logger
}

// NewTenantHandler creates a new TenantHandler. feedLimit is the number of
// activities returned when the request has no limit; zero defers to the
// service default.
func NewTenantHandler(
	activities service.ActivityService,
	settings service.SettingsService,
	users service.UserService,
	feedLimit int,
	logger *slog.Logger,
) *TenantHandler {
	return &TenantHandler{
		activities: activities,
		settings:   settings,
		users:      users,
		feedLimit:  feedLimit,
		logger:     logger.With(slog.String("component", "tenant_handler")),
	}
}

// RecentActivities handles GET /api/activities?limit=.
func (h *TenantHandler) RecentActivities(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", h.feedLimit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	items, err := h.activities.Recent(r.Context(), c.tenantID(), limit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

// GetSettings handles GET /api/settings.
func (h *TenantHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	settings, err := h.settings.Get(r.Context(), c.tenantID())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/settings.
func (h *TenantHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	var req SettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	settings, err := h.settings.Update(r.Context(), c.tenantID(), service.SettingsUpdate{
		AllowUsersPriorityChange:         req.AllowUsersPriorityChange,
		AllowUsersTaskForwarding:         req.AllowUsersTaskForwarding,
		RequireApprovalForPriorityChange: req.RequireApprovalForPriorityChange,
	}, c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, settings)
}

// ListUsers handles GET /api/users.
func (h *TenantHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	users, err := h.users.ListUsers(r.Context(), c.tenantID())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, users)
}
