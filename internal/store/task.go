package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// FindAll returns every task of the tenant in unspecified order.
	FindAll(ctx context.Context, tenantID string) ([]*domain.Task, error)

	// FindByID retrieves a task by ID within a tenant.
	// Returns ErrTaskNotFound if the task does not exist in that tenant.
	FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Task, error)

	// Save upserts a task by ID. For an existing task the stored version must
	// equal task.Version, otherwise ErrVersionConflict is returned. The saved
	// copy is returned with its version incremented.
	Save(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Delete removes a task. Returns ErrTaskNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID, tenantID string) error

	// FindOverdue returns open, assigned tasks whose deadline is before now,
	// across all tenants.
	FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// ListTenants returns the IDs of tenants that own at least one task.
	ListTenants(ctx context.Context) ([]string, error)
}
