package store

import (
	"context"

	"github.com/phrazzld/taskflow/internal/domain"
)

// SettingsStore persists the per-tenant admin settings.
type SettingsStore interface {
	// Get returns the tenant's settings, or the defaults if none were saved.
	Get(ctx context.Context, tenantID string) (*domain.AdminSettings, error)

	// Save upserts the settings of settings.TenantID.
	Save(ctx context.Context, settings *domain.AdminSettings) error
}
