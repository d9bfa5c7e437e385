package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// taskRow is the column layout of the tasks table. Collections are stored
// as JSON text.
type taskRow struct {
	ID                 uuid.UUID  `db:"id"`
	TenantID           string     `db:"tenant_id"`
	Title              string     `db:"title"`
	Description        string     `db:"description"`
	Duration           float64    `db:"duration"`
	Deadline           time.Time  `db:"deadline"`
	Status             string     `db:"status"`
	Priority           string     `db:"priority"`
	PriorityOverridden bool       `db:"priority_overridden"`
	AssignedTo         *uuid.UUID `db:"assigned_to"`
	AssignedToName     string     `db:"assigned_to_name"`
	CreatedBy          *uuid.UUID `db:"created_by"`
	CreatedByName      string     `db:"created_by_name"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	CompletedAt        *time.Time `db:"completed_at"`
	ForwardedFrom      *uuid.UUID `db:"forwarded_from"`
	ForwardedFromName  string     `db:"forwarded_from_name"`
	ForwardingHistory  string     `db:"forwarding_history"`
	EditHistory        string     `db:"edit_history"`
	Notes              string     `db:"notes"`
	Tags               string     `db:"tags"`
	Attachments        string     `db:"attachments"`
	LastEditedBy       *uuid.UUID `db:"last_edited_by"`
	LastEditedByName   string     `db:"last_edited_by_name"`
	LastEditedAt       *time.Time `db:"last_edited_at"`
	CompletedSteps     *int       `db:"completed_steps"`
	TotalSteps         *int       `db:"total_steps"`
	Version            int64      `db:"version"`
}

const taskColumns = `id, tenant_id, title, description, duration, deadline, status, priority,
	priority_overridden, assigned_to, assigned_to_name, created_by, created_by_name,
	created_at, updated_at, completed_at, forwarded_from, forwarded_from_name,
	forwarding_history, edit_history, notes, tags, attachments,
	last_edited_by, last_edited_by_name, last_edited_at,
	completed_steps, total_steps, version`

func newTaskRow(t *domain.Task) (*taskRow, error) {
	forwarding, err := marshalJSON(t.ForwardingHistory, "[]")
	if err != nil {
		return nil, fmt.Errorf("marshaling forwarding history: %w", err)
	}
	edits, err := marshalJSON(t.EditHistory, "[]")
	if err != nil {
		return nil, fmt.Errorf("marshaling edit history: %w", err)
	}
	tags, err := marshalJSON(t.Tags, "[]")
	if err != nil {
		return nil, fmt.Errorf("marshaling tags: %w", err)
	}
	attachments, err := marshalJSON(t.Attachments, "[]")
	if err != nil {
		return nil, fmt.Errorf("marshaling attachments: %w", err)
	}

	return &taskRow{
		ID:                 t.ID,
		TenantID:           t.TenantID,
		Title:              t.Title,
		Description:        t.Description,
		Duration:           t.Duration,
		Deadline:           t.Deadline.UTC(),
		Status:             string(t.Status),
		Priority:           string(t.Priority),
		PriorityOverridden: t.PriorityOverridden,
		AssignedTo:         t.AssignedTo,
		AssignedToName:     t.AssignedToName,
		CreatedBy:          t.CreatedBy,
		CreatedByName:      t.CreatedByName,
		CreatedAt:          t.CreatedAt.UTC(),
		UpdatedAt:          t.UpdatedAt.UTC(),
		CompletedAt:        utcPtr(t.CompletedAt),
		ForwardedFrom:      t.ForwardedFrom,
		ForwardedFromName:  t.ForwardedFromName,
		ForwardingHistory:  forwarding,
		EditHistory:        edits,
		Notes:              t.Notes,
		Tags:               tags,
		Attachments:        attachments,
		LastEditedBy:       t.LastEditedBy,
		LastEditedByName:   t.LastEditedByName,
		LastEditedAt:       utcPtr(t.LastEditedAt),
		CompletedSteps:     t.CompletedSteps,
		TotalSteps:         t.TotalSteps,
		Version:            t.Version,
	}, nil
}

func (r *taskRow) toDomain() (*domain.Task, error) {
	t := &domain.Task{
		ID:                 r.ID,
		TenantID:           r.TenantID,
		Title:              r.Title,
		Description:        r.Description,
		Duration:           r.Duration,
		Deadline:           r.Deadline.UTC(),
		Status:             domain.TaskStatus(r.Status),
		Priority:           domain.Priority(r.Priority),
		PriorityOverridden: r.PriorityOverridden,
		AssignedTo:         r.AssignedTo,
		AssignedToName:     r.AssignedToName,
		CreatedBy:          r.CreatedBy,
		CreatedByName:      r.CreatedByName,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
		CompletedAt:        utcPtr(r.CompletedAt),
		ForwardedFrom:      r.ForwardedFrom,
		ForwardedFromName:  r.ForwardedFromName,
		Notes:              r.Notes,
		LastEditedBy:       r.LastEditedBy,
		LastEditedByName:   r.LastEditedByName,
		LastEditedAt:       utcPtr(r.LastEditedAt),
		CompletedSteps:     r.CompletedSteps,
		TotalSteps:         r.TotalSteps,
		Version:            r.Version,
	}

	if err := unmarshalJSON(r.ForwardingHistory, &t.ForwardingHistory); err != nil {
		return nil, fmt.Errorf("unmarshaling forwarding history: %w", err)
	}
	if err := unmarshalJSON(r.EditHistory, &t.EditHistory); err != nil {
		return nil, fmt.Errorf("unmarshaling edit history: %w", err)
	}
	if err := unmarshalJSON(r.Tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags: %w", err)
	}
	if err := unmarshalJSON(r.Attachments, &t.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshaling attachments: %w", err)
	}
	return t, nil
}

type notificationRow struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  string     `db:"tenant_id"`
	UserID    uuid.UUID  `db:"user_id"`
	Type      string     `db:"type"`
	Message   string     `db:"message"`
	TaskID    *uuid.UUID `db:"task_id"`
	Read      bool       `db:"read"`
	Metadata  string     `db:"metadata"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r *notificationRow) toDomain() (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        r.ID,
		Type:      domain.NotificationType(r.Type),
		Message:   r.Message,
		TaskID:    r.TaskID,
		UserID:    r.UserID,
		TenantID:  r.TenantID,
		CreatedAt: r.CreatedAt.UTC(),
		Read:      r.Read,
	}
	if err := unmarshalJSON(r.Metadata, &n.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling notification metadata: %w", err)
	}
	if len(n.Metadata) == 0 {
		n.Metadata = nil
	}
	return n, nil
}

type activityRow struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  string     `db:"tenant_id"`
	Type      string     `db:"type"`
	Message   string     `db:"message"`
	TaskID    *uuid.UUID `db:"task_id"`
	TaskTitle string     `db:"task_title"`
	UserID    uuid.UUID  `db:"user_id"`
	UserName  string     `db:"user_name"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r *activityRow) toDomain() *domain.Activity {
	return &domain.Activity{
		ID:        r.ID,
		Type:      domain.ActivityType(r.Type),
		Message:   r.Message,
		TaskID:    r.TaskID,
		TaskTitle: r.TaskTitle,
		UserID:    r.UserID,
		UserName:  r.UserName,
		TenantID:  r.TenantID,
		Timestamp: r.CreatedAt.UTC(),
	}
}

type userRow struct {
	ID        uuid.UUID `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      domain.Role(r.Role),
		TenantID:  r.TenantID,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type settingsRow struct {
	TenantID                         string     `db:"tenant_id"`
	AllowUsersPriorityChange         bool       `db:"allow_users_priority_change"`
	AllowUsersTaskForwarding         bool       `db:"allow_users_task_forwarding"`
	RequireApprovalForPriorityChange bool       `db:"require_approval_for_priority_change"`
	UpdatedBy                        *uuid.UUID `db:"updated_by"`
	UpdatedAt                        time.Time  `db:"updated_at"`
}

func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

// unmarshalJSON leaves dst untouched for empty or empty-collection input so
// that absent collections stay nil after a round trip.
func unmarshalJSON(raw string, dst any) error {
	switch raw {
	case "", "null", "[]", "{}":
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
