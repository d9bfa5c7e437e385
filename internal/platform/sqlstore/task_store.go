package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

const (
	updateTaskQuery = `
		UPDATE tasks SET
			title = :title, description = :description, duration = :duration,
			deadline = :deadline, status = :status, priority = :priority,
			priority_overridden = :priority_overridden,
			assigned_to = :assigned_to, assigned_to_name = :assigned_to_name,
			created_by = :created_by, created_by_name = :created_by_name,
			updated_at = :updated_at, completed_at = :completed_at,
			forwarded_from = :forwarded_from, forwarded_from_name = :forwarded_from_name,
			forwarding_history = :forwarding_history, edit_history = :edit_history,
			notes = :notes, tags = :tags, attachments = :attachments,
			last_edited_by = :last_edited_by, last_edited_by_name = :last_edited_by_name,
			last_edited_at = :last_edited_at,
			completed_steps = :completed_steps, total_steps = :total_steps,
			version = :version
		WHERE id = :id AND tenant_id = :tenant_id AND version = :expected_version`

	insertTaskQuery = `
		INSERT INTO tasks (` + taskColumns + `) VALUES (
			:id, :tenant_id, :title, :description, :duration, :deadline, :status, :priority,
			:priority_overridden, :assigned_to, :assigned_to_name, :created_by, :created_by_name,
			:created_at, :updated_at, :completed_at, :forwarded_from, :forwarded_from_name,
			:forwarding_history, :edit_history, :notes, :tags, :attachments,
			:last_edited_by, :last_edited_by_name, :last_edited_at,
			:completed_steps, :total_steps, :version)`
)

// versionedTaskRow carries the version the caller read alongside the row
// being written.
type versionedTaskRow struct {
	*taskRow
	ExpectedVersion int64 `db:"expected_version"`
}

// TaskStore implements store.TaskStore.
type TaskStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewTaskStore creates a SQL task store.
func NewTaskStore(db *sqlx.DB, logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlstore"), slog.String("store", "task")),
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

// FindAll implements store.TaskStore.
func (s *TaskStore) FindAll(ctx context.Context, tenantID string) ([]*domain.Task, error) {
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = ?`)
	return s.selectTasks(ctx, query, tenantID)
}

// FindByID implements store.TaskStore.
func (s *TaskStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Task, error) {
	var row taskRow
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND tenant_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return row.toDomain()
}

// Save implements store.TaskStore.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	saved := task.Clone()
	saved.Version = task.Version + 1

	row, err := newTaskRow(saved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	params := versionedTaskRow{taskRow: row, ExpectedVersion: task.Version}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, updateTaskQuery, params)
		if err != nil {
			return MapError(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 1 {
			return nil
		}

		var stored struct {
			TenantID string `db:"tenant_id"`
			Version  int64  `db:"version"`
		}
		err = tx.GetContext(ctx, &stored, tx.Rebind(`SELECT tenant_id, version FROM tasks WHERE id = ?`), task.ID)
		switch {
		case err == nil && stored.TenantID != task.TenantID:
			return fmt.Errorf("%w: task belongs to another tenant", store.ErrInvalidEntity)
		case err == nil:
			log.Debug("rejecting stale task write",
				slog.String("task_id", task.ID.String()),
				slog.Int64("stored_version", stored.Version),
				slog.Int64("given_version", task.Version))
			return store.ErrVersionConflict
		case !errors.Is(err, sql.ErrNoRows):
			return MapError(err)
		}

		if _, err := tx.NamedExecContext(ctx, insertTaskQuery, row); err != nil {
			if IsUniqueViolation(err) {
				return store.ErrVersionConflict
			}
			return MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID, tenantID string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM tasks WHERE id = ? AND tenant_id = ?`), id, tenantID)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(res, store.ErrTaskNotFound)
}

// FindOverdue implements store.TaskStore.
func (s *TaskStore) FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks
		WHERE status <> 'completed' AND assigned_to IS NOT NULL AND deadline < ?`)
	tasks, err := s.selectTasks(ctx, query, now.UTC())
	if err != nil {
		return nil, err
	}

	overdue := tasks[:0]
	for _, t := range tasks {
		if t.IsOverdue(now) {
			overdue = append(overdue, t)
		}
	}
	return overdue, nil
}

// ListTenants implements store.TaskStore.
func (s *TaskStore) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	if err := s.db.SelectContext(ctx, &tenants, `SELECT DISTINCT tenant_id FROM tasks ORDER BY tenant_id`); err != nil {
		return nil, MapError(err)
	}
	return tenants, nil
}

func (s *TaskStore) selectTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, MapError(err)
	}

	tasks := make([]*domain.Task, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
