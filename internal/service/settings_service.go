package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow/internal/authz"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

// SettingsUpdate holds the admin switches a manager may change. Nil fields
// are left as they are.
type SettingsUpdate struct {
	AllowUsersPriorityChange         *bool
	AllowUsersTaskForwarding         *bool
	RequireApprovalForPriorityChange *bool
}

// SettingsService reads and updates the per-tenant admin settings.
type SettingsService interface {
	// Get returns the tenant's settings, falling back to the defaults.
	Get(ctx context.Context, tenantID string) (*domain.AdminSettings, error)

	// Update applies update on behalf of a manager.
	Update(ctx context.Context, tenantID string, update SettingsUpdate, actor *Actor) (*domain.AdminSettings, error)
}

// settingsServiceImpl implements the SettingsService interface
type settingsServiceImpl struct {
	settingsStore store.SettingsStore
	authorizer    *authz.Authorizer
	logger        *slog.Logger
}

// NewSettingsService creates a new SettingsService.
// It returns an error if any of the required dependencies are nil.
func NewSettingsService(
	settingsStore store.SettingsStore,
	authorizer *authz.Authorizer,
	logger *slog.Logger,
) (SettingsService, error) {
	if settingsStore == nil {
		return nil, createServiceError("settingsStore cannot be nil")
	}
	if authorizer == nil {
		return nil, createServiceError("authorizer cannot be nil")
	}
	if logger == nil {
		return nil, createServiceError("logger cannot be nil")
	}

	return &settingsServiceImpl{
		settingsStore: settingsStore,
		authorizer:    authorizer,
		logger:        logger.With("component", "settings_service"),
	}, nil
}

// Get implements SettingsService.
func (s *settingsServiceImpl) Get(ctx context.Context, tenantID string) (*domain.AdminSettings, error) {
	settings, err := s.settingsStore.Get(ctx, tenantID)
	if err != nil {
		return nil, NewServiceError("get_settings", "failed to load settings", err)
	}
	return settings, nil
}

// Update implements SettingsService.
func (s *settingsServiceImpl) Update(
	ctx context.Context,
	tenantID string,
	update SettingsUpdate,
	actor *Actor,
) (*domain.AdminSettings, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actor == nil {
		return nil, ErrNilActor
	}
	if err := s.authorizer.Authorize(actor.Role, authz.ActionUpdateSettings, nil); err != nil {
		return nil, err
	}

	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if update.AllowUsersPriorityChange != nil {
		settings.AllowUsersPriorityChange = *update.AllowUsersPriorityChange
	}
	if update.AllowUsersTaskForwarding != nil {
		settings.AllowUsersTaskForwarding = *update.AllowUsersTaskForwarding
	}
	if update.RequireApprovalForPriorityChange != nil {
		settings.RequireApprovalForPriorityChange = *update.RequireApprovalForPriorityChange
	}
	updatedBy := actor.ID
	settings.UpdatedBy = &updatedBy
	settings.UpdatedAt = time.Now().UTC()

	if err := s.settingsStore.Save(ctx, settings); err != nil {
		log.Error("failed to save settings",
			"error", err,
			"tenant_id", tenantID)
		return nil, NewServiceError("update_settings", "failed to save settings", err)
	}

	log.Info("admin settings updated",
		"tenant_id", tenantID,
		"updated_by", actor.ID,
		"allow_users_priority_change", settings.AllowUsersPriorityChange,
		"allow_users_task_forwarding", settings.AllowUsersTaskForwarding)
	return settings, nil
}
