package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore mocks the store.TaskStore interface
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) FindAll(ctx context.Context, tenantID string) ([]*domain.Task, error) {
	args := m.Called(ctx, tenantID)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskStore) FindByID(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Task, error) {
	args := m.Called(ctx, id, tenantID)
	task, _ := args.Get(0).(*domain.Task)
	return task.Clone(), args.Error(1)
}

func (m *MockTaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, task)
	saved, _ := args.Get(0).(*domain.Task)
	return saved, args.Error(1)
}

func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID, tenantID string) error {
	args := m.Called(ctx, id, tenantID)
	return args.Error(0)
}

func (m *MockTaskStore) FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	args := m.Called(ctx, now)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskStore) ListTenants(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tenants, _ := args.Get(0).([]string)
	return tenants, args.Error(1)
}

// MockNotificationStore mocks the store.NotificationStore interface
type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) FindByUser(
	ctx context.Context,
	userID uuid.UUID,
	tenantID string,
) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, tenantID)
	notifications, _ := args.Get(0).([]*domain.Notification)
	return notifications, args.Error(1)
}

func (m *MockNotificationStore) FindByID(
	ctx context.Context,
	id uuid.UUID,
	tenantID string,
) (*domain.Notification, error) {
	args := m.Called(ctx, id, tenantID)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *MockNotificationStore) Save(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationStore) Delete(ctx context.Context, id uuid.UUID, tenantID string) error {
	args := m.Called(ctx, id, tenantID)
	return args.Error(0)
}

// MockActivityStore mocks the store.ActivityStore interface
type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) FindByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.Activity, error) {
	args := m.Called(ctx, tenantID, limit)
	activities, _ := args.Get(0).([]*domain.Activity)
	return activities, args.Error(1)
}

func (m *MockActivityStore) Save(ctx context.Context, activity *domain.Activity, retention int) error {
	args := m.Called(ctx, activity, retention)
	return args.Error(0)
}
