package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

const notificationColumns = `id, tenant_id, user_id, type, message, task_id, read, metadata, created_at`

// NotificationStore implements store.NotificationStore.
type NotificationStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewNotificationStore creates a SQL notification store.
func NewNotificationStore(db *sqlx.DB, logger *slog.Logger) *NotificationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlstore"), slog.String("store", "notification")),
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// FindByUser implements store.NotificationStore.
func (s *NotificationStore) FindByUser(
	ctx context.Context,
	userID uuid.UUID,
	tenantID string,
) ([]*domain.Notification, error) {
	var rows []notificationRow
	query := s.db.Rebind(`SELECT ` + notificationColumns + ` FROM notifications
		WHERE tenant_id = ? AND user_id = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, tenantID, userID); err != nil {
		return nil, MapError(err)
	}

	out := make([]*domain.Notification, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// FindByID implements store.NotificationStore.
func (s *NotificationStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Notification, error) {
	var row notificationRow
	query := s.db.Rebind(`SELECT ` + notificationColumns + ` FROM notifications WHERE id = ? AND tenant_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		return nil, MapError(err)
	}
	return row.toDomain()
}

// Save implements store.NotificationStore.
func (s *NotificationStore) Save(ctx context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	metadata, err := marshalJSON(n.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("%w: marshaling metadata: %v", store.ErrInvalidEntity, err)
	}

	row := notificationRow{
		ID:        n.ID,
		TenantID:  n.TenantID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Message:   n.Message,
		TaskID:    n.TaskID,
		Read:      n.Read,
		Metadata:  metadata,
		CreatedAt: n.CreatedAt.UTC(),
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :tenant_id, :user_id, :type, :message, :task_id, :read, :metadata, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			message = excluded.message,
			read = excluded.read,
			metadata = excluded.metadata`, row)
	return MapError(err)
}

// Delete implements store.NotificationStore.
func (s *NotificationStore) Delete(ctx context.Context, id uuid.UUID, tenantID string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM notifications WHERE id = ? AND tenant_id = ?`), id, tenantID)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(res, store.ErrNotificationNotFound)
}
