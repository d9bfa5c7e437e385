package memdb

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

type notificationRecord struct {
	ID           string
	TenantID     string
	UserID       string
	Notification *domain.Notification
}

func notificationsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableNotifications,
		Indexes: map[string]*memdb.IndexSchema{
			"id":   idIndex("ID"),
			"user": compoundIndex("user", false, "TenantID", "UserID"),
		},
	}
}

// NotificationStore implements store.NotificationStore.
type NotificationStore struct {
	db     *DB
	logger *slog.Logger
}

// NewNotificationStore creates a notification store backed by db.
func NewNotificationStore(db *DB) *NotificationStore {
	return &NotificationStore{
		db:     db,
		logger: db.logger.With(slog.String("store", "notification")),
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// FindByUser implements store.NotificationStore.
func (s *NotificationStore) FindByUser(
	ctx context.Context,
	userID uuid.UUID,
	tenantID string,
) ([]*domain.Notification, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableNotifications, "user", tenantID, userID.String())
	if err != nil {
		return nil, fmt.Errorf("memdb: notification lookup failed: %w", err)
	}

	var out []*domain.Notification
	for _, raw := range collect(iter) {
		out = append(out, cloneNotification(raw.(*notificationRecord).Notification))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FindByID implements store.NotificationStore.
func (s *NotificationStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Notification, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	rec, err := firstNotification(tx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.TenantID != tenantID {
		return nil, store.ErrNotificationNotFound
	}
	return cloneNotification(rec.Notification), nil
}

// Save implements store.NotificationStore.
func (s *NotificationStore) Save(ctx context.Context, notification *domain.Notification) error {
	if err := notification.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tx := s.db.db.Txn(true)
	defer tx.Abort()

	rec := &notificationRecord{
		ID:           notification.ID.String(),
		TenantID:     notification.TenantID,
		UserID:       notification.UserID.String(),
		Notification: cloneNotification(notification),
	}
	if err := tx.Insert(tableNotifications, rec); err != nil {
		return fmt.Errorf("memdb: notification insert failed: %w", err)
	}
	tx.Commit()
	return nil
}

// Delete implements store.NotificationStore.
func (s *NotificationStore) Delete(ctx context.Context, id uuid.UUID, tenantID string) error {
	tx := s.db.db.Txn(true)
	defer tx.Abort()

	rec, err := firstNotification(tx, id)
	if err != nil {
		return err
	}
	if rec == nil || rec.TenantID != tenantID {
		return store.ErrNotificationNotFound
	}
	if err := tx.Delete(tableNotifications, rec); err != nil {
		return fmt.Errorf("memdb: notification delete failed: %w", err)
	}
	tx.Commit()
	return nil
}

func firstNotification(tx *memdb.Txn, id uuid.UUID) (*notificationRecord, error) {
	raw, err := tx.First(tableNotifications, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("memdb: notification lookup failed: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*notificationRecord), nil
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	c := *n
	if n.TaskID != nil {
		id := *n.TaskID
		c.TaskID = &id
	}
	c.Metadata = maps.Clone(n.Metadata)
	return &c
}
