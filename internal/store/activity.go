package store

import (
	"context"

	"github.com/phrazzld/taskflow/internal/domain"
)

// ActivityStore defines the interface for the per-tenant activity feed.
type ActivityStore interface {
	// FindByTenant returns at most limit entries, newest first.
	FindByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.Activity, error)

	// Save appends an entry and then evicts the tenant's oldest entries so
	// that at most retention remain. Other tenants are never touched.
	Save(ctx context.Context, activity *domain.Activity, retention int) error
}
