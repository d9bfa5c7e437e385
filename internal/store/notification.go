package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
type NotificationStore interface {
	// FindByUser returns the notifications addressed to a user, newest first.
	FindByUser(ctx context.Context, userID uuid.UUID, tenantID string) ([]*domain.Notification, error)

	// FindByID returns ErrNotificationNotFound when absent from the tenant.
	FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Notification, error)

	// Save upserts a notification by ID.
	Save(ctx context.Context, notification *domain.Notification) error

	// Delete returns ErrNotificationNotFound when absent from the tenant.
	Delete(ctx context.Context, id uuid.UUID, tenantID string) error
}
