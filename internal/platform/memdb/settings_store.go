package memdb

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

func settingsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableSettings,
		Indexes: map[string]*memdb.IndexSchema{
			"id": idIndex("TenantID"),
		},
	}
}

// SettingsStore implements store.SettingsStore.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a settings store backed by db.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// Get implements store.SettingsStore.
func (s *SettingsStore) Get(ctx context.Context, tenantID string) (*domain.AdminSettings, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	raw, err := tx.First(tableSettings, "id", tenantID)
	if err != nil {
		return nil, fmt.Errorf("memdb: settings lookup failed: %w", err)
	}
	if raw == nil {
		return domain.DefaultAdminSettings(tenantID), nil
	}
	settings := *raw.(*domain.AdminSettings)
	return &settings, nil
}

// Save implements store.SettingsStore.
func (s *SettingsStore) Save(ctx context.Context, settings *domain.AdminSettings) error {
	if settings.TenantID == "" {
		return fmt.Errorf("%w: settings tenant is empty", store.ErrInvalidEntity)
	}

	tx := s.db.db.Txn(true)
	defer tx.Abort()

	c := *settings
	if err := tx.Insert(tableSettings, &c); err != nil {
		return fmt.Errorf("memdb: settings insert failed: %w", err)
	}
	tx.Commit()
	return nil
}
