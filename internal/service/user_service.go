package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

// MinPasswordLength is the shortest password the placeholder check accepts.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned by Login for an unknown email or a
// rejected password. API layer should map this to HTTP 401 Unauthorized.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService provides user lookup, registration and login.
type UserService interface {
	// GetUser retrieves a user by ID within a tenant
	GetUser(ctx context.Context, id uuid.UUID, tenantID string) (*domain.User, error)

	// ListUsers returns every user of the tenant
	ListUsers(ctx context.Context, tenantID string) ([]*domain.User, error)

	// CreateUser registers a new user in the tenant
	CreateUser(ctx context.Context, tenantID, name, email string, role domain.Role) (*domain.User, error)

	// Login resolves the user for email. The password check is a placeholder
	// that only enforces a minimum length.
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// userServiceImpl implements the UserService interface
type userServiceImpl struct {
	userStore store.UserStore
	logger    *slog.Logger
}

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(userStore store.UserStore, logger *slog.Logger) (UserService, error) {
	if userStore == nil {
		return nil, createServiceError("userStore cannot be nil")
	}
	if logger == nil {
		return nil, createServiceError("logger cannot be nil")
	}

	return &userServiceImpl{
		userStore: userStore,
		logger:    logger.With("component", "user_service"),
	}, nil
}

// GetUser implements UserService.
func (s *userServiceImpl) GetUser(ctx context.Context, id uuid.UUID, tenantID string) (*domain.User, error) {
	user, err := s.userStore.FindByID(ctx, id, tenantID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NewNotFoundError("user", id.String())
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve user",
			"error", err,
			"user_id", id)
		return nil, NewServiceError("get_user", "failed to retrieve user", err)
	}
	return user, nil
}

// ListUsers implements UserService.
func (s *userServiceImpl) ListUsers(ctx context.Context, tenantID string) ([]*domain.User, error) {
	users, err := s.userStore.FindAll(ctx, tenantID)
	if err != nil {
		return nil, NewServiceError("list_users", "failed to list users", err)
	}
	return users, nil
}

// CreateUser implements UserService.
func (s *userServiceImpl) CreateUser(
	ctx context.Context,
	tenantID, name, email string,
	role domain.Role,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(tenantID, name, email, role)
	if err != nil {
		log.Debug("invalid user", "error", err)
		return nil, err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		log.Error("failed to create user",
			"error", err,
			"tenant_id", tenantID)
		return nil, NewServiceError("create_user", "failed to create user", err)
	}

	log.Info("user created",
		"user_id", user.ID,
		"tenant_id", tenantID,
		"role", user.Role)
	return user, nil
}

// Login implements UserService.
func (s *userServiceImpl) Login(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.FindByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, NewServiceError("login", "failed to look up user", err)
	}

	if len(password) < MinPasswordLength {
		log.Debug("login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
