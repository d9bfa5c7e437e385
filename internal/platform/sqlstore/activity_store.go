package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

// ActivityStore implements store.ActivityStore.
type ActivityStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewActivityStore creates a SQL activity store.
func NewActivityStore(db *sqlx.DB, logger *slog.Logger) *ActivityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlstore"), slog.String("store", "activity")),
	}
}

var _ store.ActivityStore = (*ActivityStore)(nil)

// FindByTenant implements store.ActivityStore.
func (s *ActivityStore) FindByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.Activity, error) {
	query := `SELECT id, tenant_id, type, message, task_id, task_title, user_id, user_name, created_at
		FROM activities WHERE tenant_id = ? ORDER BY created_at DESC, seq DESC`
	args := []any{tenantID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, MapError(err)
	}

	out := make([]*domain.Activity, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// Save implements store.ActivityStore. The insert and the eviction share a
// transaction so readers never see more than retention entries.
func (s *ActivityStore) Save(ctx context.Context, a *domain.Activity, retention int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if a.TenantID == "" {
		return fmt.Errorf("%w: activity tenant is empty", store.ErrInvalidEntity)
	}

	row := activityRow{
		ID:        a.ID,
		TenantID:  a.TenantID,
		Type:      string(a.Type),
		Message:   a.Message,
		TaskID:    a.TaskID,
		TaskTitle: a.TaskTitle,
		UserID:    a.UserID,
		UserName:  a.UserName,
		CreatedAt: a.Timestamp.UTC(),
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO activities (id, tenant_id, type, message, task_id, task_title, user_id, user_name, created_at)
			VALUES (:id, :tenant_id, :type, :message, :task_id, :task_title, :user_id, :user_name, :created_at)`, row)
		if err != nil {
			return MapError(err)
		}

		if retention <= 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`
			DELETE FROM activities WHERE tenant_id = ? AND seq NOT IN (
				SELECT seq FROM activities WHERE tenant_id = ?
				ORDER BY created_at DESC, seq DESC LIMIT ?
			)`), a.TenantID, a.TenantID, retention)
		if err != nil {
			return MapError(err)
		}
		if evicted, _ := res.RowsAffected(); evicted > 0 {
			log.Debug("evicted old activity entries",
				slog.String("tenant_id", a.TenantID),
				slog.Int64("evicted", evicted))
		}
		return nil
	})
}
