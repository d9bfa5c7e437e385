package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskflow/internal/authz"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/domain/priority"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/platform/memdb"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-1"

// testClock is a settable clock shared between a test and the service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires the services against a fresh in-memory database.
type fixture struct {
	tasks         *memdb.TaskStore
	users         *memdb.UserStore
	settings      *memdb.SettingsStore
	notifStore    *memdb.NotificationStore
	activityStore *memdb.ActivityStore

	authorizer    *authz.Authorizer
	notifications NotificationService
	activities    ActivityService
	settingsSvc   SettingsService
	svc           TaskService
	clock         *testClock

	manager *domain.User
	alice   *domain.User
	bob     *domain.User
	carol   *domain.User
}

func newFixture(t *testing.T, opts ...TaskServiceOption) *fixture {
	t.Helper()

	log, _ := logger.NewTestLogger(t)
	db, err := memdb.New(log)
	require.NoError(t, err)

	f := &fixture{
		tasks:         memdb.NewTaskStore(db),
		users:         memdb.NewUserStore(db),
		settings:      memdb.NewSettingsStore(db),
		notifStore:    memdb.NewNotificationStore(db),
		activityStore: memdb.NewActivityStore(db),
		clock:         newTestClock(time.Now()),
	}

	f.authorizer, err = authz.New()
	require.NoError(t, err)

	f.notifications, err = NewNotificationService(f.notifStore, log)
	require.NoError(t, err)

	f.activities, err = NewActivityService(f.activityStore, 0, log)
	require.NoError(t, err)

	f.settingsSvc, err = NewSettingsService(f.settings, f.authorizer, log)
	require.NoError(t, err)

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(f.activities)

	opts = append([]TaskServiceOption{WithClock(f.clock.Now), WithConflictRetry(3, time.Millisecond)}, opts...)
	f.svc, err = NewTaskService(
		f.tasks,
		f.users,
		f.settings,
		f.notifications,
		priority.NewDefaultService(),
		f.authorizer,
		emitter,
		log,
		opts...,
	)
	require.NoError(t, err)

	f.manager = f.addUser(t, "Morgan", "morgan@example.com", domain.RoleManager)
	f.alice = f.addUser(t, "Alice", "alice@example.com", domain.RoleWorker)
	f.bob = f.addUser(t, "Bob", "bob@example.com", domain.RoleWorker)
	f.carol = f.addUser(t, "Carol", "carol@example.com", domain.RoleWorker)

	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := domain.NewUser(testTenant, name, email, role)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// createTask stores a task assigned to assignee (nil for none), created by the manager.
func (f *fixture) createTask(t *testing.T, title string, in time.Duration, assignee *domain.User) *domain.Task {
	t.Helper()
	input := CreateTaskInput{
		TenantID: testTenant,
		Title:    title,
		Duration: 1,
		Deadline: f.clock.Now().Add(in),
	}
	if assignee != nil {
		id := assignee.ID
		input.AssignedTo = &id
	}
	task, err := f.svc.CreateTask(context.Background(), input, ActorFromUser(f.manager))
	require.NoError(t, err)
	return task
}

func (f *fixture) enableWorkerSettings(t *testing.T, priorityChange, forwarding bool) {
	t.Helper()
	_, err := f.settingsSvc.Update(context.Background(), testTenant, SettingsUpdate{
		AllowUsersPriorityChange: &priorityChange,
		AllowUsersTaskForwarding: &forwarding,
	}, ActorFromUser(f.manager))
	require.NoError(t, err)
}

// notificationsOf returns the user's notifications of type typ.
func (f *fixture) notificationsOf(
	t *testing.T,
	user *domain.User,
	typ domain.NotificationType,
) []*domain.Notification {
	t.Helper()
	all, err := f.notifStore.FindByUser(context.Background(), user.ID, testTenant)
	require.NoError(t, err)

	var out []*domain.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
