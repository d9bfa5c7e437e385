package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

// SettingsStore implements store.SettingsStore.
type SettingsStore struct {
	db *sqlx.DB
}

// NewSettingsStore creates a SQL settings store.
func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// Get implements store.SettingsStore.
func (s *SettingsStore) Get(ctx context.Context, tenantID string) (*domain.AdminSettings, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT tenant_id, allow_users_priority_change, allow_users_task_forwarding,
			require_approval_for_priority_change, updated_by, updated_at
		FROM admin_settings WHERE tenant_id = ?`), tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultAdminSettings(tenantID), nil
	}
	if err != nil {
		return nil, MapError(err)
	}

	return &domain.AdminSettings{
		TenantID:                         row.TenantID,
		AllowUsersPriorityChange:         row.AllowUsersPriorityChange,
		AllowUsersTaskForwarding:         row.AllowUsersTaskForwarding,
		RequireApprovalForPriorityChange: row.RequireApprovalForPriorityChange,
		UpdatedBy:                        row.UpdatedBy,
		UpdatedAt:                        row.UpdatedAt.UTC(),
	}, nil
}

// Save implements store.SettingsStore.
func (s *SettingsStore) Save(ctx context.Context, settings *domain.AdminSettings) error {
	if settings.TenantID == "" {
		return fmt.Errorf("%w: settings tenant is empty", store.ErrInvalidEntity)
	}

	row := settingsRow{
		TenantID:                         settings.TenantID,
		AllowUsersPriorityChange:         settings.AllowUsersPriorityChange,
		AllowUsersTaskForwarding:         settings.AllowUsersTaskForwarding,
		RequireApprovalForPriorityChange: settings.RequireApprovalForPriorityChange,
		UpdatedBy:                        settings.UpdatedBy,
		UpdatedAt:                        settings.UpdatedAt.UTC(),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO admin_settings (
			tenant_id, allow_users_priority_change, allow_users_task_forwarding,
			require_approval_for_priority_change, updated_by, updated_at
		) VALUES (
			:tenant_id, :allow_users_priority_change, :allow_users_task_forwarding,
			:require_approval_for_priority_change, :updated_by, :updated_at
		)
		ON CONFLICT (tenant_id) DO UPDATE SET
			allow_users_priority_change = excluded.allow_users_priority_change,
			allow_users_task_forwarding = excluded.allow_users_task_forwarding,
			require_approval_for_priority_change = excluded.require_approval_for_priority_change,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`, row)
	return MapError(err)
}
