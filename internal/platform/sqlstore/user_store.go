package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

const userColumns = `id, tenant_id, name, email, role, created_at`

// UserStore implements store.UserStore.
type UserStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewUserStore creates a SQL user store.
func NewUserStore(db *sqlx.DB, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlstore"), slog.String("store", "user")),
	}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	row := userRow{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Name:      user.Name,
		Email:     strings.ToLower(user.Email),
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.UTC(),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :tenant_id, :name, :email, :role, :created_at)`, row)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}
		return MapError(err)
	}
	return nil
}

// FindByID implements store.UserStore.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? AND tenant_id = ?`, id, tenantID)
}

// FindByEmail implements store.UserStore.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY created_at LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)))
}

// FindAll implements store.UserStore. Users are ordered by name.
func (s *UserStore) FindAll(ctx context.Context, tenantID string) ([]*domain.User, error) {
	var rows []userRow
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE tenant_id = ? ORDER BY name`)
	if err := s.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, MapError(err)
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toDomain())
	}
	return users, nil
}

func (s *UserStore) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, MapError(err)
	}
	return row.toDomain(), nil
}
