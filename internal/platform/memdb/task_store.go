package memdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

type taskRecord struct {
	ID       string
	TenantID string
	Task     *domain.Task
}

func tasksTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableTasks,
		Indexes: map[string]*memdb.IndexSchema{
			"id":     idIndex("ID"),
			"tenant": stringIndex("tenant", "TenantID", false),
		},
	}
}

// TaskStore implements store.TaskStore.
type TaskStore struct {
	db     *DB
	logger *slog.Logger
}

// NewTaskStore creates a task store backed by db.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{
		db:     db,
		logger: db.logger.With(slog.String("store", "task")),
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

// FindAll implements store.TaskStore.
func (s *TaskStore) FindAll(ctx context.Context, tenantID string) ([]*domain.Task, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableTasks, "tenant", tenantID)
	if err != nil {
		return nil, fmt.Errorf("memdb: task lookup failed: %w", err)
	}

	var tasks []*domain.Task
	for _, raw := range collect(iter) {
		tasks = append(tasks, raw.(*taskRecord).Task.Clone())
	}
	return tasks, nil
}

// FindByID implements store.TaskStore.
func (s *TaskStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Task, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	rec, err := firstTask(tx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.TenantID != tenantID {
		return nil, store.ErrTaskNotFound
	}
	return rec.Task.Clone(), nil
}

// Save implements store.TaskStore.
func (s *TaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tx := s.db.db.Txn(true)
	defer tx.Abort()

	existing, err := firstTask(tx, task.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.TenantID != task.TenantID {
			return nil, fmt.Errorf("%w: task belongs to another tenant", store.ErrInvalidEntity)
		}
		if existing.Task.Version != task.Version {
			log.Debug("rejecting stale task write",
				slog.String("task_id", task.ID.String()),
				slog.Int64("stored_version", existing.Task.Version),
				slog.Int64("given_version", task.Version))
			return nil, store.ErrVersionConflict
		}
	}

	saved := task.Clone()
	saved.Version = task.Version + 1

	rec := &taskRecord{ID: saved.ID.String(), TenantID: saved.TenantID, Task: saved}
	if err := tx.Insert(tableTasks, rec); err != nil {
		return nil, fmt.Errorf("memdb: task insert failed: %w", err)
	}
	tx.Commit()

	return saved.Clone(), nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID, tenantID string) error {
	tx := s.db.db.Txn(true)
	defer tx.Abort()

	rec, err := firstTask(tx, id)
	if err != nil {
		return err
	}
	if rec == nil || rec.TenantID != tenantID {
		return store.ErrTaskNotFound
	}
	if err := tx.Delete(tableTasks, rec); err != nil {
		return fmt.Errorf("memdb: task delete failed: %w", err)
	}
	tx.Commit()
	return nil
}

// FindOverdue implements store.TaskStore.
func (s *TaskStore) FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableTasks, "id")
	if err != nil {
		return nil, fmt.Errorf("memdb: task scan failed: %w", err)
	}

	var tasks []*domain.Task
	for _, raw := range collect(iter) {
		t := raw.(*taskRecord).Task
		if t.AssignedTo != nil && t.IsOverdue(now) {
			tasks = append(tasks, t.Clone())
		}
	}
	return tasks, nil
}

// ListTenants implements store.TaskStore.
func (s *TaskStore) ListTenants(ctx context.Context) ([]string, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableTasks, "id")
	if err != nil {
		return nil, fmt.Errorf("memdb: task scan failed: %w", err)
	}

	seen := make(map[string]struct{})
	for _, raw := range collect(iter) {
		seen[raw.(*taskRecord).TenantID] = struct{}{}
	}

	tenants := make([]string, 0, len(seen))
	for t := range seen {
		tenants = append(tenants, t)
	}
	sort.Strings(tenants)
	return tenants, nil
}

func firstTask(tx *memdb.Txn, id uuid.UUID) (*taskRecord, error) {
	raw, err := tx.First(tableTasks, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("memdb: task lookup failed: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*taskRecord), nil
}
