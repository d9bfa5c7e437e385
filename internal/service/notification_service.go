package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
	"go.uber.org/multierr"
)

// NotificationService builds, stores and manages user notifications.
type NotificationService interface {
	// CreateTaskAssigned tells assigneeID a task was assigned to them.
	CreateTaskAssigned(
		ctx context.Context,
		task *domain.Task,
		assigneeID uuid.UUID,
		assignedBy *Actor,
	) (*domain.Notification, error)

	// CreateTaskCompleted tells userID the task was completed.
	CreateTaskCompleted(ctx context.Context, task *domain.Task, userID uuid.UUID) (*domain.Notification, error)

	// CreatePriorityChanged tells userID the task's priority moved from oldPriority to newPriority.
	CreatePriorityChanged(
		ctx context.Context,
		task *domain.Task,
		userID uuid.UUID,
		oldPriority, newPriority domain.Priority,
		changedBy *Actor,
	) (*domain.Notification, error)

	// CreateTaskUpdated tells userID which parts of the task changed.
	CreateTaskUpdated(
		ctx context.Context,
		task *domain.Task,
		userID uuid.UUID,
		changes []string,
		changedBy *Actor,
	) (*domain.Notification, error)

	// CreateDeadlineAlert tells userID the task's deadline has passed.
	CreateDeadlineAlert(ctx context.Context, task *domain.Task, userID uuid.UUID) (*domain.Notification, error)

	// CreateTaskForwarded tells the recipient a task was forwarded to them.
	CreateTaskForwarded(
		ctx context.Context,
		task *domain.Task,
		recipient *domain.User,
		from *Actor,
		note string,
	) (*domain.Notification, error)

	// CreateForwardBroadcast tells a manager that a task changed hands.
	CreateForwardBroadcast(
		ctx context.Context,
		task *domain.Task,
		managerID uuid.UUID,
		from *Actor,
		recipient *domain.User,
		note string,
	) (*domain.Notification, error)

	// CreateTaskDeleted tells userID the task was removed.
	CreateTaskDeleted(
		ctx context.Context,
		task *domain.Task,
		userID uuid.UUID,
		deletedBy *Actor,
	) (*domain.Notification, error)

	// CreateAdminNotification stores a free-text notification.
	CreateAdminNotification(
		ctx context.Context,
		tenantID string,
		userID uuid.UUID,
		typ domain.NotificationType,
		message string,
		taskID *uuid.UUID,
	) (*domain.Notification, error)

	// ListForUser returns the user's notifications, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID, tenantID string) ([]*domain.Notification, error)

	// UnreadCount returns how many of the user's notifications are unread.
	UnreadCount(ctx context.Context, userID uuid.UUID, tenantID string) (int, error)

	// MarkAsRead marks one notification read. It does nothing unless the
	// notification exists and belongs to userID.
	MarkAsRead(ctx context.Context, id, userID uuid.UUID, tenantID string) error

	// MarkAllAsRead marks every unread notification of the user. A failure
	// on one notification does not stop the others; failures are combined.
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, tenantID string) error

	// Delete removes one of the user's notifications.
	Delete(ctx context.Context, id, userID uuid.UUID, tenantID string) error
}

// notificationServiceImpl implements the NotificationService interface
type notificationServiceImpl struct {
	notificationStore store.NotificationStore
	logger            *slog.Logger
}

// NewNotificationService creates a new NotificationService.
// It returns an error if any of the required dependencies are nil.
func NewNotificationService(
	notificationStore store.NotificationStore,
	logger *slog.Logger,
) (NotificationService, error) {
	if notificationStore == nil {
		return nil, createServiceError("notificationStore cannot be nil")
	}
	if logger == nil {
		return nil, createServiceError("logger cannot be nil")
	}

	return &notificationServiceImpl{
		notificationStore: notificationStore,
		logger:            logger.With("component", "notification_service"),
	}, nil
}

// save builds the notification, validates and stores it.
func (s *notificationServiceImpl) save(
	ctx context.Context,
	operation string,
	tenantID string,
	userID uuid.UUID,
	typ domain.NotificationType,
	message string,
	taskID *uuid.UUID,
	metadata map[string]any,
) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	n, err := domain.NewNotification(tenantID, userID, typ, message, taskID, metadata)
	if err != nil {
		log.Warn("invalid notification",
			"error", err,
			"operation", operation,
			"user_id", userID)
		return nil, NewServiceError(operation, "invalid notification", err)
	}

	if err := s.notificationStore.Save(ctx, n); err != nil {
		log.Error("failed to save notification",
			"error", err,
			"operation", operation,
			"notification_id", n.ID,
			"user_id", userID)
		return nil, NewServiceError(operation, "failed to save notification", err)
	}

	log.Debug("notification created",
		"notification_id", n.ID,
		"type", n.Type,
		"user_id", userID)
	return n, nil
}

// CreateTaskAssigned implements NotificationService.
func (s *notificationServiceImpl) CreateTaskAssigned(
	ctx context.Context,
	task *domain.Task,
	assigneeID uuid.UUID,
	assignedBy *Actor,
) (*domain.Notification, error) {
	return s.save(ctx, "create_task_assigned", task.TenantID, assigneeID,
		domain.NotificationTaskAssigned,
		fmt.Sprintf("New task \"%s\" has been assigned to you", task.Title),
		&task.ID,
		map[string]any{
			domain.MetaTaskTitle:       task.Title,
			domain.MetaTaskDescription: task.Description,
			domain.MetaPriority:        task.Priority,
			domain.MetaDueDate:         task.Deadline,
			domain.MetaAssignedBy:      actorID(assignedBy),
			domain.MetaAssignedByName:  actorName(assignedBy),
		})
}

// CreateTaskCompleted implements NotificationService.
func (s *notificationServiceImpl) CreateTaskCompleted(
	ctx context.Context,
	task *domain.Task,
	userID uuid.UUID,
) (*domain.Notification, error) {
	return s.save(ctx, "create_task_completed", task.TenantID, userID,
		domain.NotificationTaskCompleted,
		fmt.Sprintf("Task \"%s\" has been completed", task.Title),
		&task.ID,
		map[string]any{
			domain.MetaTaskTitle: task.Title,
		})
}

// CreatePriorityChanged implements NotificationService.
func (s *notificationServiceImpl) CreatePriorityChanged(
	ctx context.Context,
	task *domain.Task,
	userID uuid.UUID,
	oldPriority, newPriority domain.Priority,
	changedBy *Actor,
) (*domain.Notification, error) {
	return s.save(ctx, "create_priority_changed", task.TenantID, userID,
		domain.NotificationPriorityChanged,
		fmt.Sprintf("Priority of task \"%s\" changed from %s to %s", task.Title, oldPriority, newPriority),
		&task.ID,
		map[string]any{
			domain.MetaTaskTitle:     task.Title,
			domain.MetaOldPriority:   oldPriority,
			domain.MetaNewPriority:   newPriority,
			domain.MetaChangedBy:     actorID(changedBy),
			domain.MetaChangedByName: actorName(changedBy),
		})
}

// CreateTaskUpdated implements NotificationService.
func (s *notificationServiceImpl) CreateTaskUpdated(
	ctx context.Context,
	task *domain.Task,
	userID uuid.UUID,
	changes []string,
	changedBy *Actor,
) (*domain.Notification, error) {
	return s.save(ctx, "create_task_updated", task.TenantID, userID,
		domain.NotificationTaskUpdated,
		fmt.Sprintf("Task \"%s\" has been updated: %s", task.Title, strings.Join(changes, ", ")),
		&task.ID,
		map[string]any{
			domain.MetaTaskTitle:     task.Title,
			domain.MetaChanges:       changes,
			domain.MetaChangedBy:     actorID(changedBy),
			domain.MetaChangedByName: actorName(changedBy),
		})
}

// CreateDeadlineAlert implements NotificationService.
func (s *notificationServiceImpl) CreateDeadlineAlert(
	ctx context.Context,
	task *domain.Task,
	userID uuid.UUID,
) (*domain.Notification, error) {
	return s.save(ctx, "create_deadline_alert", task.TenantID, userID,
		domain.NotificationDeadlineAlert,
		fmt.Sprintf("Task \"%s\" deadline has passed", task.Title),
		&task.ID,
		map[string]any{
			domain.MetaTaskTitle:       task.Title,
			domain.MetaOriginalDueDate: task.Deadline,
			domain.MetaCurrentStatus:   task.Status,
		})
}

// CreateTaskForwarded implements NotificationService.
func (s *notificationServiceImpl) CreateTaskForwarded(
	ctx context.Context,
	task *domain.Task,
	recipient *domain.User,
	from *Actor,
	note string,
) (*domain.Notification, error) {
	metadata := map[string]any{
		domain.MetaTaskTitle:         task.Title,
		domain.MetaTaskDescription:   task.Description,
		domain.MetaPriority:          task.Priority,
		domain.MetaDueDate:           task.Deadline,
		domain.MetaAssignedBy:        actorID(from),
		domain.MetaAssignedByName:    actorName(from),
		domain.MetaForwardedFrom:     actorID(from),
		domain.MetaForwardedFromName: actorName(from),
		domain.MetaForwardedTo:       recipient.ID,
		domain.MetaForwardedToName:   recipient.Name,
	}
	if note != "" {
		metadata[domain.MetaForwardingNote] = note
	}

	return s.save(ctx, "create_task_forwarded", task.TenantID, recipient.ID,
		domain.NotificationTaskAssigned,
		fmt.Sprintf("You have been assigned a forwarded task \"%s\" from %s", task.Title, actorName(from)),
		&task.ID,
		metadata)
}

// CreateForwardBroadcast implements NotificationService.
func (s *notificationServiceImpl) CreateForwardBroadcast(
	ctx context.Context,
	task *domain.Task,
	managerID uuid.UUID,
	from *Actor,
	recipient *domain.User,
	note string,
) (*domain.Notification, error) {
	metadata := map[string]any{
		domain.MetaTaskTitle:         task.Title,
		domain.MetaForwardedFrom:     actorID(from),
		domain.MetaForwardedFromName: actorName(from),
		domain.MetaForwardedTo:       recipient.ID,
		domain.MetaForwardedToName:   recipient.Name,
	}
	if note != "" {
		metadata[domain.MetaForwardingNote] = note
	}

	return s.save(ctx, "create_forward_broadcast", task.TenantID, managerID,
		domain.NotificationTaskUpdated,
		fmt.Sprintf("Task \"%s\" forwarded from %s to %s", task.Title, actorName(from), recipient.Name),
		&task.ID,
		metadata)
}

// CreateTaskDeleted implements NotificationService.
func (s *notificationServiceImpl) CreateTaskDeleted(
	ctx context.Context,
	task *domain.Task,
	userID uuid.UUID,
	deletedBy *Actor,
) (*domain.Notification, error) {
	return s.save(ctx, "create_task_deleted", task.TenantID, userID,
		domain.NotificationTaskUpdated,
		fmt.Sprintf("Task \"%s\" has been deleted by %s", task.Title, actorName(deletedBy)),
		&task.ID,
		map[string]any{
			domain.MetaTaskTitle:     task.Title,
			domain.MetaChanges:       []string{"Task deleted"},
			domain.MetaChangedBy:     actorID(deletedBy),
			domain.MetaChangedByName: actorName(deletedBy),
		})
}

// CreateAdminNotification implements NotificationService.
func (s *notificationServiceImpl) CreateAdminNotification(
	ctx context.Context,
	tenantID string,
	userID uuid.UUID,
	typ domain.NotificationType,
	message string,
	taskID *uuid.UUID,
) (*domain.Notification, error) {
	return s.save(ctx, "create_admin_notification", tenantID, userID, typ, message, taskID, nil)
}

// ListForUser implements NotificationService.
func (s *notificationServiceImpl) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	tenantID string,
) ([]*domain.Notification, error) {
	notifications, err := s.notificationStore.FindByUser(ctx, userID, tenantID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			"error", err,
			"user_id", userID,
			"tenant_id", tenantID)
		return nil, NewServiceError("list_notifications", "failed to list notifications", err)
	}
	return notifications, nil
}

// UnreadCount implements NotificationService.
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID uuid.UUID, tenantID string) (int, error) {
	notifications, err := s.ListForUser(ctx, userID, tenantID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkAsRead implements NotificationService.
func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, id, userID uuid.UUID, tenantID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	n, err := s.notificationStore.FindByID(ctx, id, tenantID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("mark as read on missing notification ignored", "notification_id", id)
			return nil
		}
		return NewServiceError("mark_as_read", "failed to load notification", err)
	}

	if n.UserID != userID {
		log.Debug("mark as read by non-recipient ignored",
			"notification_id", id,
			"user_id", userID)
		return nil
	}

	return s.markRead(ctx, n)
}

// MarkAllAsRead implements NotificationService.
func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID, tenantID string) error {
	notifications, err := s.ListForUser(ctx, userID, tenantID)
	if err != nil {
		return err
	}

	var errs error
	for _, n := range notifications {
		if n.Read {
			continue
		}
		errs = multierr.Append(errs, s.markRead(ctx, n))
	}

	if errs != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("some notifications could not be marked read",
			"error", errs,
			"failed", len(multierr.Errors(errs)),
			"user_id", userID)
	}
	return errs
}

func (s *notificationServiceImpl) markRead(ctx context.Context, n *domain.Notification) error {
	if !n.MarkRead() {
		return nil
	}
	if err := s.notificationStore.Save(ctx, n); err != nil {
		return NewServiceError("mark_as_read", fmt.Sprintf("failed to mark notification %s read", n.ID), err)
	}
	return nil
}

// Delete implements NotificationService.
func (s *notificationServiceImpl) Delete(ctx context.Context, id, userID uuid.UUID, tenantID string) error {
	n, err := s.notificationStore.FindByID(ctx, id, tenantID)
	if err != nil {
		return NewServiceError("delete_notification", "failed to load notification", err)
	}
	if n.UserID != userID {
		return domain.NewNotFoundError("notification", id.String())
	}

	if err := s.notificationStore.Delete(ctx, id, tenantID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete notification",
			"error", err,
			"notification_id", id)
		return NewServiceError("delete_notification", "failed to delete notification", err)
	}
	return nil
}
