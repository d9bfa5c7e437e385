package memdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

type userRecord struct {
	ID       string
	TenantID string
	Email    string
	User     *domain.User
}

func usersTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableUsers,
		Indexes: map[string]*memdb.IndexSchema{
			"id":           idIndex("ID"),
			"tenant":       stringIndex("tenant", "TenantID", false),
			"email":        stringIndex("email", "Email", false),
			"tenant_email": compoundIndex("tenant_email", true, "TenantID", "Email"),
		},
	}
}

// UserStore implements store.UserStore.
type UserStore struct {
	db     *DB
	logger *slog.Logger
}

// NewUserStore creates a user store backed by db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{
		db:     db,
		logger: db.logger.With(slog.String("store", "user")),
	}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	email := strings.ToLower(user.Email)

	tx := s.db.db.Txn(true)
	defer tx.Abort()

	existing, err := tx.First(tableUsers, "tenant_email", user.TenantID, email)
	if err != nil {
		return fmt.Errorf("memdb: user lookup failed: %w", err)
	}
	if existing != nil {
		return store.ErrEmailExists
	}
	byID, err := tx.First(tableUsers, "id", user.ID.String())
	if err != nil {
		return fmt.Errorf("memdb: user lookup failed: %w", err)
	}
	if byID != nil {
		return fmt.Errorf("%w: user id", store.ErrDuplicate)
	}

	u := *user
	rec := &userRecord{ID: u.ID.String(), TenantID: u.TenantID, Email: email, User: &u}
	if err := tx.Insert(tableUsers, rec); err != nil {
		return fmt.Errorf("memdb: user insert failed: %w", err)
	}
	tx.Commit()
	return nil
}

// FindByID implements store.UserStore.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.User, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	raw, err := tx.First(tableUsers, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("memdb: user lookup failed: %w", err)
	}
	if raw == nil || raw.(*userRecord).TenantID != tenantID {
		return nil, store.ErrUserNotFound
	}
	u := *raw.(*userRecord).User
	return &u, nil
}

// FindByEmail implements store.UserStore.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	raw, err := tx.First(tableUsers, "email", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("memdb: user lookup failed: %w", err)
	}
	if raw == nil {
		return nil, store.ErrUserNotFound
	}
	u := *raw.(*userRecord).User
	return &u, nil
}

// FindAll implements store.UserStore. Users are ordered by name.
func (s *UserStore) FindAll(ctx context.Context, tenantID string) ([]*domain.User, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableUsers, "tenant", tenantID)
	if err != nil {
		return nil, fmt.Errorf("memdb: user lookup failed: %w", err)
	}

	var users []*domain.User
	for _, raw := range collect(iter) {
		u := *raw.(*userRecord).User
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}
