// Package cache keeps a local copy of a user's tasks and applies writes to it
// before the backend confirms them.
package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/service"
)

// TaskClient is the backend a TaskCache talks to.
type TaskClient interface {
	ListTasks(ctx context.Context) ([]*domain.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error)
	OverridePriority(ctx context.Context, id uuid.UUID, p domain.Priority) (*domain.Task, error)
	EditTask(ctx context.Context, id uuid.UUID, patch service.TaskPatch) (*domain.Task, error)
}

// ServiceClient binds a TaskService to one signed-in user.
type ServiceClient struct {
	tasks    service.TaskService
	tenantID string
	actor    *service.Actor
}

var _ TaskClient = (*ServiceClient)(nil)

// NewServiceClient creates a TaskClient that calls tasks in-process on
// behalf of user.
func NewServiceClient(tasks service.TaskService, user *domain.User) *ServiceClient {
	return &ServiceClient{
		tasks:    tasks,
		tenantID: user.TenantID,
		actor:    service.ActorFromUser(user),
	}
}

func (c *ServiceClient) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	return c.tasks.ListTasks(ctx, c.tenantID, c.actor.Role, c.actor.ID)
}

func (c *ServiceClient) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
) (*domain.Task, error) {
	return c.tasks.UpdateStatus(ctx, id, status, c.tenantID, c.actor.ID, c.actor)
}

func (c *ServiceClient) OverridePriority(
	ctx context.Context,
	id uuid.UUID,
	p domain.Priority,
) (*domain.Task, error) {
	return c.tasks.OverridePriority(ctx, id, p, c.tenantID, c.actor)
}

func (c *ServiceClient) EditTask(ctx context.Context, id uuid.UUID, patch service.TaskPatch) (*domain.Task, error) {
	return c.tasks.EditTask(ctx, id, c.tenantID, patch, c.actor)
}
