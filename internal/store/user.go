package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user.
	// Returns ErrEmailExists if the email is already taken in the tenant.
	Create(ctx context.Context, user *domain.User) error

	// FindByID returns ErrUserNotFound if the user does not exist in the tenant.
	FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.User, error)

	// FindByEmail looks the email up across tenants, since login happens
	// before the tenant is known. Returns ErrUserNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindAll returns every user of the tenant.
	FindAll(ctx context.Context, tenantID string) ([]*domain.User, error)
}
