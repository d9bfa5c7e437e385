package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType classifies an entry of the recent-activity feed.
type ActivityType string

// Possible activity types
const (
	ActivityTaskCreated     ActivityType = "task_created"
	ActivityTaskCompleted   ActivityType = "task_completed"
	ActivityTaskUpdated     ActivityType = "task_updated"
	ActivityPriorityChanged ActivityType = "priority_changed"
	ActivityStatusChanged   ActivityType = "status_changed"
	ActivityTaskForwarded   ActivityType = "task_forwarded"
	ActivityTaskDeleted     ActivityType = "task_deleted"
)

// Activity is one entry of a tenant's append-only feed.
type Activity struct {
	ID        uuid.UUID    `json:"id"`
	Type      ActivityType `json:"type"`
	Message   string       `json:"message"`
	TaskID    *uuid.UUID   `json:"task_id,omitempty"`
	TaskTitle string       `json:"task_title,omitempty"`
	UserID    uuid.UUID    `json:"user_id"`
	UserName  string       `json:"user_name"`
	TenantID  string       `json:"tenant_id"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewActivity creates an activity entry stamped with the current time.
func NewActivity(tenantID string, typ ActivityType, message string, userID uuid.UUID, userName string) (*Activity, error) {
	a := &Activity{
		ID:        uuid.New(),
		Type:      typ,
		Message:   message,
		UserID:    userID,
		UserName:  userName,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
	}

	if a.TenantID == "" {
		return nil, ErrEmptyTenantID
	}
	if a.Message == "" {
		return nil, NewValidationError("message", "activity message cannot be empty")
	}

	return a, nil
}

// WithTask attaches the task reference to the entry.
func (a *Activity) WithTask(task *Task) *Activity {
	if task != nil {
		id := task.ID
		a.TaskID = &id
		a.TaskTitle = task.Title
	}
	return a
}
