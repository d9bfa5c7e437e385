package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification for display and filtering.
type NotificationType string

// Possible notification types
const (
	NotificationTaskAssigned        NotificationType = "task_assigned"
	NotificationTaskCompleted       NotificationType = "task_completed"
	NotificationPriorityChanged     NotificationType = "priority_changed"
	NotificationTaskUpdated         NotificationType = "task_updated"
	NotificationDeadlineAlert       NotificationType = "deadline_alert"
	NotificationDeadlineApproaching NotificationType = "deadline_approaching"
)

// Metadata keys attached to notifications.
const (
	MetaTaskTitle         = "taskTitle"
	MetaTaskDescription   = "taskDescription"
	MetaPriority          = "priority"
	MetaOldPriority       = "oldPriority"
	MetaNewPriority       = "newPriority"
	MetaDueDate           = "dueDate"
	MetaAssignedBy        = "assignedBy"
	MetaAssignedByName    = "assignedByName"
	MetaChangedBy         = "changedBy"
	MetaChangedByName     = "changedByName"
	MetaChanges           = "changes"
	MetaOriginalDueDate   = "originalDueDate"
	MetaCurrentStatus     = "currentStatus"
	MetaForwardedFrom     = "forwardedFrom"
	MetaForwardedFromName = "forwardedFromName"
	MetaForwardedTo       = "forwardedTo"
	MetaForwardedToName   = "forwardedToName"
	MetaForwardingNote    = "forwardingNote"
)

// Common validation errors for Notification
var (
	ErrEmptyNotificationID      = NewValidationError("id", "notification ID cannot be empty")
	ErrEmptyNotificationUser    = NewValidationError("user_id", "notification recipient cannot be empty")
	ErrEmptyNotificationMessage = NewValidationError("message", "notification message cannot be empty")
	ErrInvalidNotificationType  = NewValidationError("type", "invalid notification type")
)

// Notification is a message addressed to one user of a tenant.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty"`
	UserID    uuid.UUID        `json:"user_id"`
	TenantID  string           `json:"tenant_id"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// NewNotification creates an unread notification.
func NewNotification(
	tenantID string,
	userID uuid.UUID,
	typ NotificationType,
	message string,
	taskID *uuid.UUID,
	metadata map[string]any,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		Type:      typ,
		Message:   message,
		TaskID:    cloneUUID(taskID),
		UserID:    userID,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotificationID
	}
	if n.TenantID == "" {
		return ErrEmptyTenantID
	}
	if n.UserID == uuid.Nil {
		return ErrEmptyNotificationUser
	}
	if n.Message == "" {
		return ErrEmptyNotificationMessage
	}
	if !n.Type.IsValid() {
		return ErrInvalidNotificationType
	}
	return nil
}

// MarkRead flips Read forward. It reports whether anything changed.
func (n *Notification) MarkRead() bool {
	if n.Read {
		return false
	}
	n.Read = true
	return true
}

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTaskAssigned,
		NotificationTaskCompleted,
		NotificationPriorityChanged,
		NotificationTaskUpdated,
		NotificationDeadlineAlert,
		NotificationDeadlineApproaching:
		return true
	default:
		return false
	}
}
