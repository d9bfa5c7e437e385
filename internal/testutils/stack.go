package testutils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/taskflow/internal/authz"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/domain/priority"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/platform/memdb"
	"github.com/phrazzld/taskflow/internal/service"
	"github.com/phrazzld/taskflow/internal/store"
	"github.com/stretchr/testify/require"
)

// DefaultTenant is the tenant of users created by MustCreateUser.
const DefaultTenant = "acme"

// Stack is the service layer wired over a fresh in-memory database.
type Stack struct {
	Logger  *slog.Logger
	LogBuf  *logger.TestLogBuffer
	Emitter *events.InMemoryEventEmitter

	Authorizer *authz.Authorizer

	TaskStore     store.TaskStore
	UserStore     store.UserStore
	SettingsStore store.SettingsStore

	Tasks         service.TaskService
	Notifications service.NotificationService
	Activities    service.ActivityService
	Settings      service.SettingsService
	Users         service.UserService
}

// NewStack builds the services the way the server does, with the activity
// log subscribed to task lifecycle events. opts are passed to the TaskService.
func NewStack(t *testing.T, opts ...service.TaskServiceOption) *Stack {
	t.Helper()

	log, buf := logger.NewTestLogger(t)
	db, err := memdb.New(log)
	require.NoError(t, err, "Failed to create in-memory database")

	s := &Stack{
		Logger:        log,
		LogBuf:        buf,
		Emitter:       events.NewInMemoryEventEmitter(log),
		TaskStore:     memdb.NewTaskStore(db),
		UserStore:     memdb.NewUserStore(db),
		SettingsStore: memdb.NewSettingsStore(db),
	}

	s.Authorizer, err = authz.New()
	require.NoError(t, err)

	s.Notifications, err = service.NewNotificationService(memdb.NewNotificationStore(db), log)
	require.NoError(t, err)
	s.Activities, err = service.NewActivityService(memdb.NewActivityStore(db), 0, log)
	require.NoError(t, err)
	s.Settings, err = service.NewSettingsService(s.SettingsStore, s.Authorizer, log)
	require.NoError(t, err)
	s.Users, err = service.NewUserService(s.UserStore, log)
	require.NoError(t, err)

	s.Emitter.RegisterHandler(s.Activities)

	s.Tasks, err = service.NewTaskService(
		s.TaskStore,
		s.UserStore,
		s.SettingsStore,
		s.Notifications,
		priority.NewDefaultService(),
		s.Authorizer,
		s.Emitter,
		log,
		opts...,
	)
	require.NoError(t, err)

	return s
}

// MustCreateUser registers a user of DefaultTenant with an email derived
// from name.
func (s *Stack) MustCreateUser(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	return s.MustCreateTenantUser(t, DefaultTenant, name, role)
}

// MustCreateTenantUser registers a user of tenantID.
func (s *Stack) MustCreateTenantUser(t *testing.T, tenantID, name string, role domain.Role) *domain.User {
	t.Helper()

	email := fmt.Sprintf("%s@%s.example.com", strings.ToLower(name), tenantID)
	user, err := s.Users.CreateUser(context.Background(), tenantID, name, email, role)
	require.NoError(t, err, "Failed to create user %s", name)
	return user
}
