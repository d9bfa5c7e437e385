package testutils

import (
	"testing"
	"time"

	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/stretchr/testify/require"
)

// TaskOption customizes a task built by MustCreateTaskForTest.
type TaskOption func(*domain.Task)

// WithTaskTenant sets the tenant.
func WithTaskTenant(tenantID string) TaskOption {
	return func(t *domain.Task) {
		t.TenantID = tenantID
	}
}

// WithTaskTitle sets the title.
func WithTaskTitle(title string) TaskOption {
	return func(t *domain.Task) {
		t.Title = title
	}
}

// WithTaskDeadlineIn puts the deadline d from now. A negative d makes the
// task overdue.
func WithTaskDeadlineIn(d time.Duration) TaskOption {
	return func(t *domain.Task) {
		t.Deadline = time.Now().Add(d).UTC()
	}
}

// WithTaskAssignee assigns the task to user.
func WithTaskAssignee(user *domain.User) TaskOption {
	return func(t *domain.Task) {
		id := user.ID
		t.AssignedTo = &id
		t.AssignedToName = user.Name
	}
}

// WithTaskStatus sets the status.
func WithTaskStatus(status domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = status
	}
}

// WithTaskPriority pins the priority.
func WithTaskPriority(p domain.Priority) TaskOption {
	return func(t *domain.Task) {
		t.Priority = p
		t.PriorityOverridden = true
	}
}

// MustCreateTaskForTest returns a valid, unsaved task of DefaultTenant due
// in 48 hours, with opts applied.
func MustCreateTaskForTest(t *testing.T, opts ...TaskOption) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(DefaultTenant, "Test task", "", 1, time.Now().Add(48*time.Hour))
	require.NoError(t, err, "Failed to create test task")

	for _, opt := range opts {
		opt(task)
	}
	require.NoError(t, task.Validate(), "Test task options produced an invalid task")
	return task
}
