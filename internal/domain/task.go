package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the progress state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Priority is the urgency tier of a task, derived from its deadline.
type Priority string

// Possible priority values, most urgent first
const (
	PriorityImmediate Priority = "immediate"
	PriorityMedium    Priority = "medium"
	PriorityLong      Priority = "long"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = NewValidationError("id", "task ID cannot be empty")
	ErrEmptyTaskTitle    = NewValidationError("title", "task title cannot be empty")
	ErrEmptyTaskTenant   = NewValidationError("tenant_id", "task tenant cannot be empty")
	ErrInvalidTaskStatus = NewValidationError("status", "invalid task status")
	ErrInvalidPriority   = NewValidationError("priority", "invalid task priority")
	ErrZeroDeadline      = NewValidationError("deadline", "task deadline is required")
	ErrNegativeDuration  = NewValidationError("duration", "task duration cannot be negative")
	ErrInvalidProgress   = NewValidationError("completed_steps", "completed steps exceed total steps")
)

// ForwardEntry is one hop in a task's forwarding chain. Entries are never
// modified once appended.
type ForwardEntry struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	From        uuid.UUID `json:"forwarded_from"`
	FromName    string    `json:"forwarded_from_name"`
	To          uuid.UUID `json:"forwarded_to"`
	ToName      string    `json:"forwarded_to_name"`
	Note        string    `json:"note,omitempty"`
	ForwardedAt time.Time `json:"forwarded_at"`
}

// FieldChange records a single field transition inside an edit.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// EditEntry records who changed which fields of a task and when.
type EditEntry struct {
	ID           uuid.UUID     `json:"id"`
	TaskID       uuid.UUID     `json:"task_id"`
	EditedBy     uuid.UUID     `json:"edited_by"`
	EditedByName string        `json:"edited_by_name"`
	EditedAt     time.Time     `json:"edited_at"`
	Changes      []FieldChange `json:"changes"`
}

// Task is a unit of work scoped to a tenant. Its priority mirrors the
// deadline unless PriorityOverridden pins it.
type Task struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Duration           float64    `json:"duration"`
	Deadline           time.Time  `json:"deadline"`
	Status             TaskStatus `json:"status"`
	Priority           Priority   `json:"priority"`
	PriorityOverridden bool       `json:"priority_overridden"`

	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty"`
	AssignedToName string     `json:"assigned_to_name,omitempty"`
	CreatedBy      *uuid.UUID `json:"created_by,omitempty"`
	CreatedByName  string     `json:"created_by_name,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ForwardedFrom     *uuid.UUID     `json:"forwarded_from,omitempty"`
	ForwardedFromName string         `json:"forwarded_from_name,omitempty"`
	ForwardingHistory []ForwardEntry `json:"forwarding_history,omitempty"`
	EditHistory       []EditEntry    `json:"edit_history,omitempty"`

	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Attachments []string `json:"attachments,omitempty"`

	LastEditedBy     *uuid.UUID `json:"last_edited_by,omitempty"`
	LastEditedByName string     `json:"last_edited_by_name,omitempty"`
	LastEditedAt     *time.Time `json:"last_edited_at,omitempty"`

	CompletedSteps *int `json:"completed_steps,omitempty"`
	TotalSteps     *int `json:"total_steps,omitempty"`

	// Version increases by one on every successful save.
	Version int64 `json:"version"`
}

// NewTask creates a pending task with a fresh ID and timestamps. Priority is
// left empty; callers derive it with the priority calculator.
func NewTask(tenantID, title, description string, duration float64, deadline time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Duration:    duration,
		Deadline:    deadline.UTC(),
		Status:      TaskStatusPending,
		Priority:    PriorityLong,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.TenantID == "" {
		return ErrEmptyTaskTenant
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}
	if t.Deadline.IsZero() {
		return ErrZeroDeadline
	}
	if t.Duration < 0 {
		return ErrNegativeDuration
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if t.CompletedSteps != nil && t.TotalSteps != nil && *t.CompletedSteps > *t.TotalSteps {
		return ErrInvalidProgress
	}
	return nil
}

// IsAssignedTo reports whether the task is currently assigned to userID.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// IsOverdue reports whether the deadline has passed and the task is still open.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusCompleted && t.Deadline.Before(now)
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := *t
	c.AssignedTo = cloneUUID(t.AssignedTo)
	c.CreatedBy = cloneUUID(t.CreatedBy)
	c.ForwardedFrom = cloneUUID(t.ForwardedFrom)
	c.LastEditedBy = cloneUUID(t.LastEditedBy)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.LastEditedAt = cloneTime(t.LastEditedAt)
	c.CompletedSteps = cloneInt(t.CompletedSteps)
	c.TotalSteps = cloneInt(t.TotalSteps)

	if t.ForwardingHistory != nil {
		c.ForwardingHistory = append([]ForwardEntry(nil), t.ForwardingHistory...)
	}
	if t.EditHistory != nil {
		c.EditHistory = make([]EditEntry, len(t.EditHistory))
		for i, e := range t.EditHistory {
			e.Changes = append([]FieldChange(nil), e.Changes...)
			c.EditHistory[i] = e
		}
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Attachments != nil {
		c.Attachments = append([]string(nil), t.Attachments...)
	}

	return &c
}

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// IsValid reports whether p is a known priority tier.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityImmediate, PriorityMedium, PriorityLong:
		return true
	default:
		return false
	}
}

// Rank orders priorities for sorting; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLong:
		return 2
	default:
		return 3
	}
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
