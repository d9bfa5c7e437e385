package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/authz"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/domain/priority"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Defaults for the optimistic write loop and bulk operations.
const (
	DefaultConflictRetries = 3
	DefaultConflictBackoff = 10 * time.Millisecond
	DefaultBulkConcurrency = 8
)

// CreateTaskInput carries the fields of a new task.
type CreateTaskInput struct {
	TenantID       string
	Title          string
	Description    string
	Duration       float64
	Deadline       time.Time
	AssignedTo     *uuid.UUID
	AssignedToName string
	// Priority pins the priority when set. Workers need the tenant setting
	// that allows priority changes.
	Priority    domain.Priority
	Notes       string
	Tags        []string
	Attachments []string
	TotalSteps  *int
}

// TaskPatch lists the fields EditTask should change. Nil fields are kept.
type TaskPatch struct {
	Title          *string
	Description    *string
	Duration       *float64
	Deadline       *time.Time
	Status         *domain.TaskStatus
	AssignedTo     *uuid.UUID
	Notes          *string
	Tags           *[]string
	Attachments    *[]string
	CompletedSteps *int
	TotalSteps     *int
}

// ForwardInput describes a hand-over of a task to another user.
type ForwardInput struct {
	TaskID    uuid.UUID
	TenantID  string
	ToUserID  uuid.UUID
	Forwarder *Actor
	Note      string
}

// BulkResult is the outcome of one item of a bulk operation.
type BulkResult struct {
	ID   uuid.UUID
	Task *domain.Task
	Err  error
}

// TaskService is the task lifecycle engine. Every mutation goes through it.
type TaskService interface {
	// ListTasks returns every task of the tenant for managers and only the
	// assigned tasks for workers, most urgent first.
	ListTasks(ctx context.Context, tenantID string, role domain.Role, userID uuid.UUID) ([]*domain.Task, error)

	// ListTasksPage is ListTasks restricted to a window. It also returns
	// the size of the full listing.
	ListTasksPage(
		ctx context.Context,
		tenantID string,
		role domain.Role,
		userID uuid.UUID,
		offset, limit int,
	) ([]*domain.Task, int, error)

	// GetTask retrieves a task by ID within a tenant.
	GetTask(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Task, error)

	// CreateTask stores a new task and tells the assignee about it.
	CreateTask(ctx context.Context, input CreateTaskInput, creator *Actor) (*domain.Task, error)

	// UpdateStatus moves a task to status. actingUserID receives the
	// completion notification.
	UpdateStatus(
		ctx context.Context,
		id uuid.UUID,
		status domain.TaskStatus,
		tenantID string,
		actingUserID uuid.UUID,
		actor *Actor,
	) (*domain.Task, error)

	// OverridePriority pins the task's priority.
	OverridePriority(
		ctx context.Context,
		id uuid.UUID,
		p domain.Priority,
		tenantID string,
		actor *Actor,
	) (*domain.Task, error)

	// ClearOverride unpins the priority and derives it from the deadline again.
	ClearOverride(ctx context.Context, id uuid.UUID, tenantID string, actor *Actor) (*domain.Task, error)

	// UpdateTask stores the editable fields of task. With nil changes the
	// change list is computed from the stored copy.
	UpdateTask(ctx context.Context, task *domain.Task, changes []string, actor *Actor) (*domain.Task, error)

	// EditTask applies patch to the stored task.
	EditTask(ctx context.Context, id uuid.UUID, tenantID string, patch TaskPatch, actor *Actor) (*domain.Task, error)

	// OverrideDeadline moves the deadline on behalf of a manager.
	OverrideDeadline(
		ctx context.Context,
		id uuid.UUID,
		tenantID string,
		deadline time.Time,
		actor *Actor,
	) (*domain.Task, error)

	// RefreshAllPriorities recomputes every unpinned priority of the tenant
	// and returns how many tasks changed.
	RefreshAllPriorities(ctx context.Context, tenantID string) (int, error)

	// DeleteTask removes a task after telling its assignee.
	DeleteTask(ctx context.Context, id uuid.UUID, tenantID string, actor *Actor) error

	// ForwardTask hands a task from its assignee to another user.
	ForwardTask(ctx context.Context, input ForwardInput) (*domain.Task, error)

	// BulkUpdateStatus runs UpdateStatus for each id concurrently. Results
	// keep the order of ids; failures are also combined into the error.
	BulkUpdateStatus(
		ctx context.Context,
		ids []uuid.UUID,
		status domain.TaskStatus,
		tenantID string,
		actingUserID uuid.UUID,
		actor *Actor,
	) ([]BulkResult, error)
}

// TaskServiceOption tunes a TaskService.
type TaskServiceOption func(*taskServiceImpl)

// WithBulkConcurrency bounds how many updates a bulk call runs at once.
func WithBulkConcurrency(n int) TaskServiceOption {
	return func(s *taskServiceImpl) {
		if n > 0 {
			s.bulkConcurrency = n
		}
	}
}

// WithConflictRetry sets how many attempts a write gets and how long to
// wait between them when the task changed underneath it.
func WithConflictRetry(attempts int, backoff time.Duration) TaskServiceOption {
	return func(s *taskServiceImpl) {
		if attempts > 0 {
			s.conflictRetries = attempts
		}
		if backoff > 0 {
			s.conflictBackoff = backoff
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *taskServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore     store.TaskStore
	userStore     store.UserStore
	settingsStore store.SettingsStore
	notifications NotificationService
	priority      priority.Service
	authorizer    *authz.Authorizer
	eventEmitter  events.EventEmitter
	logger        *slog.Logger

	bulkConcurrency int
	conflictRetries int
	conflictBackoff time.Duration
	now             func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	userStore store.UserStore,
	settingsStore store.SettingsStore,
	notifications NotificationService,
	priorityService priority.Service,
	authorizer *authz.Authorizer,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
	opts ...TaskServiceOption,
) (TaskService, error) {
	switch {
	case taskStore == nil:
		return nil, createServiceError("taskStore cannot be nil")
	case userStore == nil:
		return nil, createServiceError("userStore cannot be nil")
	case settingsStore == nil:
		return nil, createServiceError("settingsStore cannot be nil")
	case notifications == nil:
		return nil, createServiceError("notifications cannot be nil")
	case priorityService == nil:
		return nil, createServiceError("priorityService cannot be nil")
	case authorizer == nil:
		return nil, createServiceError("authorizer cannot be nil")
	case eventEmitter == nil:
		return nil, createServiceError("eventEmitter cannot be nil")
	case logger == nil:
		return nil, createServiceError("logger cannot be nil")
	}

	s := &taskServiceImpl{
		taskStore:       taskStore,
		userStore:       userStore,
		settingsStore:   settingsStore,
		notifications:   notifications,
		priority:        priorityService,
		authorizer:      authorizer,
		eventEmitter:    eventEmitter,
		logger:          logger.With("component", "task_service"),
		bulkConcurrency: DefaultBulkConcurrency,
		conflictRetries: DefaultConflictRetries,
		conflictBackoff: DefaultConflictBackoff,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	tenantID string,
	role domain.Role,
	userID uuid.UUID,
) ([]*domain.Task, error) {
	tasks, err := s.taskStore.FindAll(ctx, tenantID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			"error", err,
			"tenant_id", tenantID)
		return nil, NewServiceError("list_tasks", "failed to list tasks", err)
	}

	if role != domain.RoleManager {
		tasks = slices.DeleteFunc(tasks, func(t *domain.Task) bool {
			return !t.IsAssignedTo(userID)
		})
	}

	slices.SortStableFunc(tasks, func(a, b *domain.Task) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		return a.Deadline.Compare(b.Deadline)
	})
	return tasks, nil
}

// ListTasksPage implements TaskService.
func (s *taskServiceImpl) ListTasksPage(
	ctx context.Context,
	tenantID string,
	role domain.Role,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.Task, int, error) {
	tasks, err := s.ListTasks(ctx, tenantID, role, userID)
	if err != nil {
		return nil, 0, err
	}

	total := len(tasks)
	offset = max(offset, 0)
	if offset >= total {
		return []*domain.Task{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return tasks[offset:end], total, nil
}

// GetTask implements TaskService.
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Task, error) {
	task, err := s.taskStore.FindByID(ctx, id, tenantID)
	if err != nil {
		return nil, s.loadError("get_task", id, err)
	}
	return task, nil
}

// CreateTask implements TaskService.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput, creator *Actor) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.authorize(ctx, input.TenantID, creator, authz.ActionCreateTask, false); err != nil {
		return nil, err
	}

	pinned := input.Priority != ""
	if pinned {
		if !input.Priority.IsValid() {
			return nil, domain.ErrInvalidPriority
		}
		if err := s.authorize(ctx, input.TenantID, creator, authz.ActionOverridePriority, false); err != nil {
			return nil, err
		}
	}

	task, err := domain.NewTask(input.TenantID, input.Title, input.Description, input.Duration, input.Deadline)
	if err != nil {
		log.Debug("invalid task input", "error", err)
		return nil, err
	}

	now := s.now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Notes = input.Notes
	task.Tags = slices.Clone(input.Tags)
	task.Attachments = slices.Clone(input.Attachments)
	if input.TotalSteps != nil {
		total, done := *input.TotalSteps, 0
		task.TotalSteps = &total
		task.CompletedSteps = &done
	}

	if pinned {
		task.Priority = input.Priority
		task.PriorityOverridden = true
	} else {
		task.Priority = s.priority.Calculate(task, now)
	}

	if input.AssignedTo != nil {
		name := input.AssignedToName
		if name == "" {
			assignee, err := s.resolveUser(ctx, *input.AssignedTo, input.TenantID, "assignee not found")
			if err != nil {
				return nil, err
			}
			name = assignee.Name
		}
		assigneeID := *input.AssignedTo
		task.AssignedTo = &assigneeID
		task.AssignedToName = name
	}

	if creator != nil {
		creatorID := creator.ID
		task.CreatedBy = &creatorID
		task.CreatedByName = creator.Name
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.taskStore.Save(ctx, task)
	if err != nil {
		log.Error("failed to save task",
			"error", err,
			"task_id", task.ID,
			"tenant_id", task.TenantID)
		return nil, NewServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		"task_id", saved.ID,
		"tenant_id", saved.TenantID,
		"priority", saved.Priority)

	if saved.AssignedTo != nil && creator != nil {
		if _, err := s.notifications.CreateTaskAssigned(ctx, saved, *saved.AssignedTo, creator); err != nil {
			s.logNotifyFailure(ctx, "task_assigned", saved, err)
		}
	}

	s.emit(ctx, domain.ActivityTaskCreated, saved, creator, "")
	return saved, nil
}

// UpdateStatus implements TaskService.
func (s *taskServiceImpl) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	tenantID string,
	actingUserID uuid.UUID,
	actor *Actor,
) (*domain.Task, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidTaskStatus
	}
	if err := s.authorize(ctx, tenantID, actor, authz.ActionUpdateStatus, false); err != nil {
		return nil, err
	}

	before, saved, err := s.mutate(ctx, "update_status", id, tenantID, func(t *domain.Task, now time.Time) error {
		t.Status = status
		if status == domain.TaskStatusCompleted {
			completedAt := now
			t.CompletedAt = &completedAt
		}
		return s.reprioritize(t, now)
	})
	if err != nil {
		return nil, err
	}

	if status == domain.TaskStatusCompleted {
		if _, err := s.notifications.CreateTaskCompleted(ctx, saved, actingUserID); err != nil {
			s.logNotifyFailure(ctx, "task_completed", saved, err)
		}
	}

	if before.Status != status && actor != nil && saved.AssignedTo != nil {
		change := fmt.Sprintf("Status changed from %s to %s", before.Status, status)
		_, err := s.notifications.CreateTaskUpdated(ctx, saved, *saved.AssignedTo, []string{change}, actor)
		if err != nil {
			s.logNotifyFailure(ctx, "task_updated", saved, err)
		}
	}

	eventType := domain.ActivityStatusChanged
	if status == domain.TaskStatusCompleted {
		eventType = domain.ActivityTaskCompleted
	}
	s.emit(ctx, eventType, saved, actor, string(status))
	return saved, nil
}

// OverridePriority implements TaskService.
func (s *taskServiceImpl) OverridePriority(
	ctx context.Context,
	id uuid.UUID,
	p domain.Priority,
	tenantID string,
	actor *Actor,
) (*domain.Task, error) {
	if !p.IsValid() {
		return nil, domain.ErrInvalidPriority
	}
	if err := s.authorize(ctx, tenantID, actor, authz.ActionOverridePriority, false); err != nil {
		return nil, err
	}

	before, saved, err := s.mutate(ctx, "override_priority", id, tenantID, func(t *domain.Task, now time.Time) error {
		t.Priority = p
		t.PriorityOverridden = true
		touch(t, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if before.Priority != p && actor != nil && saved.AssignedTo != nil {
		_, err := s.notifications.CreatePriorityChanged(ctx, saved, *saved.AssignedTo, before.Priority, p, actor)
		if err != nil {
			s.logNotifyFailure(ctx, "priority_changed", saved, err)
		}
	}

	s.emit(ctx, domain.ActivityPriorityChanged, saved, actor, string(p))
	return saved, nil
}

// ClearOverride implements TaskService.
func (s *taskServiceImpl) ClearOverride(
	ctx context.Context,
	id uuid.UUID,
	tenantID string,
	actor *Actor,
) (*domain.Task, error) {
	if err := s.authorize(ctx, tenantID, actor, authz.ActionClearOverride, true); err != nil {
		return nil, err
	}

	before, saved, err := s.mutate(ctx, "clear_override", id, tenantID, func(t *domain.Task, now time.Time) error {
		t.PriorityOverridden = false
		return s.reprioritize(t, now)
	})
	if err != nil {
		return nil, err
	}

	if before.Priority != saved.Priority && saved.AssignedTo != nil {
		_, err := s.notifications.CreatePriorityChanged(ctx, saved, *saved.AssignedTo,
			before.Priority, saved.Priority, actor)
		if err != nil {
			s.logNotifyFailure(ctx, "priority_changed", saved, err)
		}
	}

	s.emit(ctx, domain.ActivityPriorityChanged, saved, actor, string(saved.Priority))
	return saved, nil
}

// UpdateTask implements TaskService.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	task *domain.Task,
	changes []string,
	actor *Actor,
) (*domain.Task, error) {
	if task == nil {
		return nil, domain.NewValidationError("task", "task cannot be nil")
	}

	desired := task.Clone()
	return s.edit(ctx, "update_task", task.ID, task.TenantID, changes, actor,
		func(ctx context.Context, t *domain.Task) error {
			if desired.AssignedTo != nil && desired.AssignedToName == "" &&
				!sameAssignee(t.AssignedTo, desired.AssignedTo) {
				user, err := s.resolveUser(ctx, *desired.AssignedTo, t.TenantID, "assignee not found")
				if err != nil {
					return err
				}
				desired.AssignedToName = user.Name
			}
			copyEditable(t, desired)
			return nil
		})
}

// EditTask implements TaskService.
func (s *taskServiceImpl) EditTask(
	ctx context.Context,
	id uuid.UUID,
	tenantID string,
	patch TaskPatch,
	actor *Actor,
) (*domain.Task, error) {
	return s.edit(ctx, "edit_task", id, tenantID, nil, actor,
		func(ctx context.Context, t *domain.Task) error {
			if patch.AssignedTo != nil && !t.IsAssignedTo(*patch.AssignedTo) {
				user, err := s.resolveUser(ctx, *patch.AssignedTo, tenantID, "assignee not found")
				if err != nil {
					return err
				}
				assigneeID := user.ID
				t.AssignedTo = &assigneeID
				t.AssignedToName = user.Name
			}
			patch.Apply(t)
			return nil
		})
}

// OverrideDeadline implements TaskService.
func (s *taskServiceImpl) OverrideDeadline(
	ctx context.Context,
	id uuid.UUID,
	tenantID string,
	deadline time.Time,
	actor *Actor,
) (*domain.Task, error) {
	if deadline.IsZero() {
		return nil, domain.ErrZeroDeadline
	}
	if err := s.authorize(ctx, tenantID, actor, authz.ActionOverrideDeadline, true); err != nil {
		return nil, err
	}

	deadline = deadline.UTC()
	changes := []string{fmt.Sprintf("Deadline overridden to %s", deadline.Format(time.DateOnly))}
	return s.edit(ctx, "override_deadline", id, tenantID, changes, actor,
		func(_ context.Context, t *domain.Task) error {
			t.Deadline = deadline
			return nil
		})
}

// edit is the shared body of UpdateTask, EditTask and OverrideDeadline.
// apply changes the editable fields; edit records the history, recomputes
// the priority, stores the task and notifies the assignee. Workers may only
// edit tasks assigned to them, and neither reassign them nor move the
// deadline here. A status change has the side effects of UpdateStatus.
func (s *taskServiceImpl) edit(
	ctx context.Context,
	operation string,
	id uuid.UUID,
	tenantID string,
	changes []string,
	actor *Actor,
	apply func(ctx context.Context, t *domain.Task) error,
) (*domain.Task, error) {
	if err := s.authorize(ctx, tenantID, actor, authz.ActionEditTask, false); err != nil {
		return nil, err
	}

	worker := actor != nil && !actor.IsManager()

	var descriptors []string
	edited := false
	before, saved, err := s.mutate(ctx, operation, id, tenantID, func(t *domain.Task, now time.Time) error {
		before := t.Clone()
		if worker && !before.IsAssignedTo(actor.ID) {
			return errNotEditor
		}
		if err := apply(ctx, t); err != nil {
			return err
		}
		if worker {
			if !sameAssignee(before.AssignedTo, t.AssignedTo) {
				return errWorkerReassign
			}
			if !t.Deadline.Equal(before.Deadline) {
				if err := s.authorize(ctx, tenantID, actor, authz.ActionOverrideDeadline, true); err != nil {
					return err
				}
			}
		}
		if err := t.Validate(); err != nil {
			return err
		}

		var fieldChanges []domain.FieldChange
		descriptors, fieldChanges = domain.DiffTask(before, t)
		if changes != nil {
			descriptors = changes
		}
		edited = changes != nil || slices.ContainsFunc(fieldChanges, func(c domain.FieldChange) bool {
			return c.Field != "status"
		})

		if t.Status == domain.TaskStatusCompleted && before.Status != domain.TaskStatusCompleted {
			completedAt := now
			t.CompletedAt = &completedAt
		}

		if len(fieldChanges) > 0 {
			editedAt := now
			editor := actorID(actor)
			t.EditHistory = append(t.EditHistory, domain.EditEntry{
				ID:           uuid.New(),
				TaskID:       t.ID,
				EditedBy:     editor,
				EditedByName: actorName(actor),
				EditedAt:     editedAt,
				Changes:      fieldChanges,
			})
			t.LastEditedBy = &editor
			t.LastEditedByName = actorName(actor)
			t.LastEditedAt = &editedAt
		}

		return s.reprioritize(t, now)
	})
	if err != nil {
		return nil, err
	}

	if len(descriptors) > 0 && saved.AssignedTo != nil {
		if _, err := s.notifications.CreateTaskUpdated(ctx, saved, *saved.AssignedTo, descriptors, actor); err != nil {
			s.logNotifyFailure(ctx, "task_updated", saved, err)
		}
	}

	if before.Status != saved.Status {
		if saved.Status == domain.TaskStatusCompleted && actor != nil {
			if _, err := s.notifications.CreateTaskCompleted(ctx, saved, actor.ID); err != nil {
				s.logNotifyFailure(ctx, "task_completed", saved, err)
			}
		}
		eventType := domain.ActivityStatusChanged
		if saved.Status == domain.TaskStatusCompleted {
			eventType = domain.ActivityTaskCompleted
		}
		s.emit(ctx, eventType, saved, actor, string(saved.Status))
	}
	if edited || before.Status == saved.Status {
		s.emit(ctx, domain.ActivityTaskUpdated, saved, actor, "")
	}
	return saved, nil
}

// RefreshAllPriorities implements TaskService.
func (s *taskServiceImpl) RefreshAllPriorities(ctx context.Context, tenantID string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tasks, err := s.taskStore.FindAll(ctx, tenantID)
	if err != nil {
		return 0, NewServiceError("refresh_priorities", "failed to load tasks", err)
	}

	now := s.now().UTC()
	updated := 0
	var errs error
	for _, task := range tasks {
		if task.PriorityOverridden || s.priority.Calculate(task, now) == task.Priority {
			continue
		}

		next, err := s.priority.UpdatePriority(task, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		if _, err := s.taskStore.Save(ctx, next); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				log.Warn("skipping task changed during priority refresh", "task_id", task.ID)
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		updated++
	}

	log.Debug("priorities refreshed",
		"tenant_id", tenantID,
		"updated", updated,
		"total", len(tasks))

	if errs != nil {
		return updated, NewServiceError("refresh_priorities", "some tasks could not be refreshed", errs)
	}
	return updated, nil
}

// DeleteTask implements TaskService.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID, tenantID string, actor *Actor) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.authorize(ctx, tenantID, actor, authz.ActionDeleteTask, true); err != nil {
		return err
	}

	task, err := s.taskStore.FindByID(ctx, id, tenantID)
	if err != nil {
		return s.loadError("delete_task", id, err)
	}

	if task.AssignedTo != nil {
		if _, err := s.notifications.CreateTaskDeleted(ctx, task, *task.AssignedTo, actor); err != nil {
			s.logNotifyFailure(ctx, "task_deleted", task, err)
		}
	}

	if err := s.taskStore.Delete(ctx, id, tenantID); err != nil {
		log.Error("failed to delete task",
			"error", err,
			"task_id", id)
		return NewServiceError("delete_task", "failed to delete task", err)
	}

	log.Info("task deleted",
		"task_id", id,
		"tenant_id", tenantID)
	s.emit(ctx, domain.ActivityTaskDeleted, task, actor, "")
	return nil
}

// ForwardTask implements TaskService.
func (s *taskServiceImpl) ForwardTask(ctx context.Context, input ForwardInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	forwarder := input.Forwarder
	if forwarder == nil {
		return nil, ErrNilActor
	}

	task, err := s.taskStore.FindByID(ctx, input.TaskID, input.TenantID)
	if err != nil {
		return nil, s.loadError("forward_task", input.TaskID, err)
	}
	if !task.IsAssignedTo(forwarder.ID) {
		return nil, errNotAssignee
	}

	if err := s.authorize(ctx, input.TenantID, forwarder, authz.ActionForwardTask, true); err != nil {
		return nil, err
	}

	recipient, err := s.resolveUser(ctx, input.ToUserID, input.TenantID, "recipient user not found")
	if err != nil {
		return nil, err
	}

	_, saved, err := s.mutate(ctx, "forward_task", input.TaskID, input.TenantID, func(t *domain.Task, now time.Time) error {
		if !t.IsAssignedTo(forwarder.ID) {
			return errNotAssignee
		}

		if t.ForwardedFrom == nil {
			from := forwarder.ID
			t.ForwardedFrom = &from
			t.ForwardedFromName = forwarder.Name
		}
		t.ForwardingHistory = append(t.ForwardingHistory, domain.ForwardEntry{
			ID:          uuid.New(),
			TaskID:      t.ID,
			From:        forwarder.ID,
			FromName:    forwarder.Name,
			To:          recipient.ID,
			ToName:      recipient.Name,
			Note:        input.Note,
			ForwardedAt: now,
		})

		to := recipient.ID
		t.AssignedTo = &to
		t.AssignedToName = recipient.Name
		touch(t, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task forwarded",
		"task_id", saved.ID,
		"from", forwarder.ID,
		"to", recipient.ID)

	if _, err := s.notifications.CreateTaskForwarded(ctx, saved, recipient, forwarder, input.Note); err != nil {
		s.logNotifyFailure(ctx, "task_forwarded", saved, err)
	}

	users, err := s.userStore.FindAll(ctx, input.TenantID)
	if err != nil {
		log.Error("failed to load managers for forward broadcast",
			"error", err,
			"tenant_id", input.TenantID)
	}
	for _, u := range users {
		if !u.IsManager() {
			continue
		}
		if _, err := s.notifications.CreateForwardBroadcast(ctx, saved, u.ID, forwarder, recipient, input.Note); err != nil {
			s.logNotifyFailure(ctx, "forward_broadcast", saved, err)
		}
	}

	s.emit(ctx, domain.ActivityTaskForwarded, saved, forwarder, recipient.Name)
	return saved, nil
}

// BulkUpdateStatus implements TaskService.
func (s *taskServiceImpl) BulkUpdateStatus(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.TaskStatus,
	tenantID string,
	actingUserID uuid.UUID,
	actor *Actor,
) ([]BulkResult, error) {
	results := make([]BulkResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.bulkConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			task, err := s.UpdateStatus(ctx, id, status, tenantID, actingUserID, actor)
			results[i] = BulkResult{ID: id, Task: task, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("task %s: %w", r.ID, r.Err))
		}
	}

	if errs != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("bulk status update partly failed",
			"error", errs,
			"failed", len(multierr.Errors(errs)),
			"total", len(ids))
	}
	return results, errs
}

var errNotAssignee = domain.NewPermissionError(string(authz.ActionForwardTask),
	"only the assigned user can forward this task")

var errNotEditor = domain.NewPermissionError(string(authz.ActionEditTask),
	"only the assigned user can edit this task")

var errWorkerReassign = domain.NewPermissionError(string(authz.ActionForwardTask),
	"reassigning a task requires forwarding it")

// mutate runs a read-modify-write on a task and retries when the stored
// version moved. It returns the stored copy before and after the write.
func (s *taskServiceImpl) mutate(
	ctx context.Context,
	operation string,
	id uuid.UUID,
	tenantID string,
	apply func(t *domain.Task, now time.Time) error,
) (*domain.Task, *domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var before, saved *domain.Task
	backoff := retry.WithMaxRetries(uint64(s.conflictRetries-1), retry.NewConstant(s.conflictBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		current, err := s.taskStore.FindByID(ctx, id, tenantID)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := apply(next, s.now().UTC()); err != nil {
			return err
		}

		result, err := s.taskStore.Save(ctx, next)
		if errors.Is(err, store.ErrVersionConflict) {
			log.Debug("version conflict, retrying",
				"operation", operation,
				"task_id", id,
				"version", current.Version)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		before, saved = current, result
		return nil
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, domain.NewNotFoundError("task", id.String())
		}
		if !errors.Is(err, domain.ErrPermission) && !errors.Is(err, domain.ErrValidation) &&
			!errors.Is(err, domain.ErrNotFound) {
			log.Error("task update failed",
				"error", err,
				"operation", operation,
				"task_id", id)
		}
		return nil, nil, NewServiceError(operation, "failed to update task", err)
	}
	return before, saved, nil
}

// reprioritize recomputes t's priority in place and advances UpdatedAt.
func (s *taskServiceImpl) reprioritize(t *domain.Task, now time.Time) error {
	next, err := s.priority.UpdatePriority(t, now)
	if err != nil {
		return err
	}
	t.Priority = next.Priority
	t.UpdatedAt = next.UpdatedAt
	return nil
}

// authorize checks actor against the role policy. A nil actor is an
// internal caller and passes unless requireActor is set.
func (s *taskServiceImpl) authorize(
	ctx context.Context,
	tenantID string,
	actor *Actor,
	action authz.Action,
	requireActor bool,
) error {
	if actor == nil {
		if !requireActor {
			return nil
		}
		return s.authorizer.Authorize("", action, nil)
	}

	var settings *domain.AdminSettings
	if !actor.IsManager() {
		var err error
		settings, err = s.settingsStore.Get(ctx, tenantID)
		if err != nil {
			return NewServiceError(string(action), "failed to load admin settings", err)
		}
	}

	if err := s.authorizer.Authorize(actor.Role, action, settings); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("action denied",
			"action", action,
			"user_id", actor.ID,
			"role", actor.Role)
		return err
	}
	return nil
}

// resolveUser loads a user of the tenant, answering NotFound with message
// when the user does not exist.
func (s *taskServiceImpl) resolveUser(
	ctx context.Context,
	id uuid.UUID,
	tenantID string,
	message string,
) (*domain.User, error) {
	user, err := s.userStore.FindByID(ctx, id, tenantID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, &domain.NotFoundError{Entity: "user", ID: id.String(), Message: message}
		}
		return nil, NewServiceError("resolve_user", "failed to load user", err)
	}
	return user, nil
}

func (s *taskServiceImpl) loadError(operation string, id uuid.UUID, err error) error {
	if store.IsNotFoundError(err) {
		return domain.NewNotFoundError("task", id.String())
	}
	s.logger.Error("failed to load task",
		"error", err,
		"operation", operation,
		"task_id", id)
	return NewServiceError(operation, "failed to load task", err)
}

// emit publishes a lifecycle event. Handler failures never fail the mutation.
func (s *taskServiceImpl) emit(
	ctx context.Context,
	typ domain.ActivityType,
	task *domain.Task,
	actor *Actor,
	detail string,
) {
	event := events.NewLifecycleEvent(typ, task, actorID(actor), actorName(actor), detail)
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to emit lifecycle event",
			"error", err,
			"event_type", typ,
			"task_id", task.ID)
	}
}

func (s *taskServiceImpl) logNotifyFailure(ctx context.Context, kind string, task *domain.Task, err error) {
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to send notification",
		"error", err,
		"notification", kind,
		"task_id", task.ID)
}

// touch advances UpdatedAt to now, or one nanosecond past its current
// value when the clock has not moved.
func touch(t *domain.Task, now time.Time) {
	next := now.UTC()
	if !next.After(t.UpdatedAt) {
		next = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = next
}

// copyEditable copies the user-editable fields of src onto dst.
func copyEditable(dst, src *domain.Task) {
	dst.Title = src.Title
	dst.Description = src.Description
	dst.Duration = src.Duration
	dst.Deadline = src.Deadline.UTC()
	dst.Status = src.Status
	dst.AssignedTo = src.AssignedTo
	dst.AssignedToName = src.AssignedToName
	dst.Notes = src.Notes
	dst.Tags = src.Tags
	dst.Attachments = src.Attachments
	dst.CompletedSteps = src.CompletedSteps
	dst.TotalSteps = src.TotalSteps
}

// Apply copies the non-nil fields of patch onto t. Assignment is left to
// the caller, which has to resolve the assignee's name.
func (patch TaskPatch) Apply(t *domain.Task) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Duration != nil {
		t.Duration = *patch.Duration
	}
	if patch.Deadline != nil {
		t.Deadline = patch.Deadline.UTC()
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.Tags != nil {
		t.Tags = slices.Clone(*patch.Tags)
	}
	if patch.Attachments != nil {
		t.Attachments = slices.Clone(*patch.Attachments)
	}
	if patch.CompletedSteps != nil {
		done := *patch.CompletedSteps
		t.CompletedSteps = &done
	}
	if patch.TotalSteps != nil {
		total := *patch.TotalSteps
		t.TotalSteps = &total
	}
}

func sameAssignee(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
