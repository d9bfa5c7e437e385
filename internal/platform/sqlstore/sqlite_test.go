package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB returns a migrated in-memory SQLite database.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, ":memory:", OpenOptions{PingRetries: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, DialectSQLite, MigrateUp, nil))
	return db
}

func newTestTask(t *testing.T, tenantID string, deadline time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(tenantID, "Task", "desc", 1.5, deadline)
	require.NoError(t, err)
	return task
}

func TestMigrateStatusAndVersion(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	assert.NoError(t, Migrate(ctx, db, DialectSQLite, MigrateStatus, nil))
	assert.NoError(t, Migrate(ctx, db, DialectSQLite, MigrateVersion, nil))
	assert.Error(t, Migrate(ctx, db, DialectSQLite, "sideways", nil))
	assert.Error(t, Migrate(ctx, db, Dialect("oracle"), MigrateUp, nil))
}

func TestTaskStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTaskStore(openTestDB(t), nil)

	assignee := uuid.New()
	done, total := 1, 4
	task := newTestTask(t, "tenant-1", time.Now().Add(48*time.Hour))
	task.AssignedTo = &assignee
	task.AssignedToName = "Bob"
	task.Tags = []string{"ops", "urgent"}
	task.CompletedSteps = &done
	task.TotalSteps = &total
	task.ForwardingHistory = []domain.ForwardEntry{{
		ID: uuid.New(), TaskID: task.ID, From: uuid.New(), FromName: "A",
		To: assignee, ToName: "Bob", Note: "yours", ForwardedAt: time.Now().UTC(),
	}}

	saved, err := s.Save(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	got, err := s.FindByID(ctx, task.ID, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.True(t, got.Deadline.Equal(task.Deadline))
	assert.True(t, got.CreatedAt.Equal(task.CreatedAt))
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, assignee, *got.AssignedTo)
	assert.Equal(t, []string{"ops", "urgent"}, got.Tags)
	assert.Nil(t, got.Attachments)
	assert.Equal(t, 4, *got.TotalSteps)
	require.Len(t, got.ForwardingHistory, 1)
	assert.Equal(t, "yours", got.ForwardingHistory[0].Note)
	assert.Equal(t, int64(1), got.Version)

	_, err = s.FindByID(ctx, task.ID, "tenant-2")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	all, err := s.FindAll(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTaskStoreVersionConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTaskStore(openTestDB(t), nil)

	v1, err := s.Save(ctx, newTestTask(t, "tenant-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	stale := v1.Clone()

	v1.Title = "first"
	v2, err := s.Save(ctx, v1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Version)

	stale.Title = "second"
	_, err = s.Save(ctx, stale)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := s.FindByID(ctx, v1.ID, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, int64(2), got.Version)

	foreign := v2.Clone()
	foreign.TenantID = "tenant-2"
	_, err = s.Save(ctx, foreign)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestTaskStoreDeleteOverdueAndTenants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTaskStore(openTestDB(t), nil)
	now := time.Now().UTC()
	assignee := uuid.New()

	overdue := newTestTask(t, "tenant-b", now.Add(-2*time.Hour))
	overdue.AssignedTo = &assignee
	unassigned := newTestTask(t, "tenant-a", now.Add(-2*time.Hour))
	future := newTestTask(t, "tenant-a", now.Add(2*time.Hour))
	future.AssignedTo = &assignee

	for _, task := range []*domain.Task{overdue, unassigned, future} {
		_, err := s.Save(ctx, task)
		require.NoError(t, err)
	}

	got, err := s.FindOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)

	tenants, err := s.ListTenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, tenants)

	require.NoError(t, s.Delete(ctx, future.ID, "tenant-a"))
	assert.ErrorIs(t, s.Delete(ctx, future.ID, "tenant-a"), store.ErrTaskNotFound)
}

func TestNotificationStoreSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewNotificationStore(openTestDB(t), nil)
	user := uuid.New()
	taskID := uuid.New()

	older, err := domain.NewNotification("tenant-1", user, domain.NotificationTaskAssigned, "older", &taskID,
		map[string]any{domain.MetaTaskTitle: "Report"})
	require.NoError(t, err)
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	newer, err := domain.NewNotification("tenant-1", user, domain.NotificationTaskUpdated, "newer", nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	list, err := s.FindByUser(ctx, user, "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Message)
	assert.Equal(t, "Report", list[1].Metadata[domain.MetaTaskTitle])
	require.NotNil(t, list[1].TaskID)
	assert.Equal(t, taskID, *list[1].TaskID)

	older.MarkRead()
	require.NoError(t, s.Save(ctx, older))
	got, err := s.FindByID(ctx, older.ID, "tenant-1")
	require.NoError(t, err)
	assert.True(t, got.Read)

	require.NoError(t, s.Delete(ctx, older.ID, "tenant-1"))
	_, err = s.FindByID(ctx, older.ID, "tenant-1")
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)
	assert.ErrorIs(t, s.Delete(ctx, older.ID, "tenant-1"), store.ErrNotificationNotFound)
}

func TestActivityStoreSQLiteRetention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewActivityStore(openTestDB(t), nil)
	actor := uuid.New()

	other, err := domain.NewActivity("tenant-quiet", domain.ActivityTaskCreated, "quiet", actor, "Q")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, other, 2))

	for _, msg := range []string{"one", "two", "three"} {
		a, err := domain.NewActivity("tenant-noisy", domain.ActivityTaskUpdated, msg, actor, "N")
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, a, 2))
	}

	noisy, err := s.FindByTenant(ctx, "tenant-noisy", 0)
	require.NoError(t, err)
	require.Len(t, noisy, 2)
	assert.Equal(t, "three", noisy[0].Message)
	assert.Equal(t, "two", noisy[1].Message)

	quiet, err := s.FindByTenant(ctx, "tenant-quiet", 10)
	require.NoError(t, err)
	assert.Len(t, quiet, 1)

	one, err := s.FindByTenant(ctx, "tenant-noisy", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestUserStoreSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewUserStore(openTestDB(t), nil)

	zoe, err := domain.NewUser("tenant-1", "Zoe", "zoe@example.com", domain.RoleWorker)
	require.NoError(t, err)
	amy, err := domain.NewUser("tenant-1", "Amy", "amy@example.com", domain.RoleManager)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, zoe))
	require.NoError(t, s.Create(ctx, amy))

	dup, err := domain.NewUser("tenant-1", "Zoe Again", "zoe@example.com", domain.RoleWorker)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Create(ctx, dup), store.ErrEmailExists)

	all, err := s.FindAll(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Amy", all[0].Name)

	got, err := s.FindByEmail(ctx, "ZOE@example.com")
	require.NoError(t, err)
	assert.Equal(t, zoe.ID, got.ID)
	assert.Equal(t, domain.RoleWorker, got.Role)

	_, err = s.FindByID(ctx, zoe.ID, "tenant-2")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestSettingsStoreSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettingsStore(openTestDB(t))

	got, err := s.Get(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, got.RequireApprovalForPriorityChange)

	manager := uuid.New()
	got.AllowUsersPriorityChange = true
	got.UpdatedBy = &manager
	require.NoError(t, s.Save(ctx, got))

	got.AllowUsersTaskForwarding = true
	require.NoError(t, s.Save(ctx, got))

	stored, err := s.Get(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, stored.AllowUsersPriorityChange)
	assert.True(t, stored.AllowUsersTaskForwarding)
	require.NotNil(t, stored.UpdatedBy)
	assert.Equal(t, manager, *stored.UpdatedBy)
}
