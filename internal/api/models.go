package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/service"
)

// LoginRequest defines the payload for the login endpoint. When Role is
// set it must match the stored user's role.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"omitempty,oneof=worker manager"`
}

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
	Name     string `json:"name"      validate:"required,max=200"`
	Role     string `json:"role"      validate:"required,oneof=worker manager"`
	TenantID string `json:"tenant_id" validate:"required,max=100"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
	// ExpiresAt is the RFC 3339 time the token stops being accepted.
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Duration    float64    `json:"duration"    validate:"gte=0"`
	Deadline    time.Time  `json:"deadline"    validate:"required"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	Priority    string     `json:"priority"    validate:"omitempty,oneof=immediate medium long"`
	Notes       string     `json:"notes"`
	Tags        []string   `json:"tags"        validate:"max=20,dive,max=50"`
	Attachments []string   `json:"attachments" validate:"max=20"`
	TotalSteps  *int       `json:"total_steps" validate:"omitempty,gte=0"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/{id}. Absent fields are kept.
type UpdateTaskRequest struct {
	Title          *string            `json:"title"           validate:"omitempty,max=200"`
	Description    *string            `json:"description"     validate:"omitempty,max=5000"`
	Duration       *float64           `json:"duration"        validate:"omitempty,gte=0"`
	Deadline       *time.Time         `json:"deadline"`
	Status         *domain.TaskStatus `json:"status"          validate:"omitempty,oneof=pending in_progress completed"`
	AssignedTo     *uuid.UUID         `json:"assigned_to"`
	Notes          *string            `json:"notes"`
	Tags           *[]string          `json:"tags"`
	Attachments    *[]string          `json:"attachments"`
	CompletedSteps *int               `json:"completed_steps" validate:"omitempty,gte=0"`
	TotalSteps     *int               `json:"total_steps"     validate:"omitempty,gte=0"`
}

func (req UpdateTaskRequest) patch() service.TaskPatch {
	return service.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		Duration:       req.Duration,
		Deadline:       req.Deadline,
		Status:         req.Status,
		AssignedTo:     req.AssignedTo,
		Notes:          req.Notes,
		Tags:           req.Tags,
		Attachments:    req.Attachments,
		CompletedSteps: req.CompletedSteps,
		TotalSteps:     req.TotalSteps,
	}
}

// StatusRequest is the body of PATCH /api/tasks/{id}/status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// PriorityRequest is the body of PATCH /api/tasks/{id}/priority.
type PriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=immediate medium long"`
}

// DeadlineRequest is the body of PATCH /api/tasks/{id}/deadline.
type DeadlineRequest struct {
	Deadline time.Time `json:"deadline" validate:"required"`
}

// ForwardRequest is the body of POST /api/tasks/{id}/forward.
type ForwardRequest struct {
	ToUserID uuid.UUID `json:"to_user_id" validate:"required"`
	Note     string    `json:"note"       validate:"max=1000"`
}

// BulkStatusRequest is the body of POST /api/tasks/bulk-status.
type BulkStatusRequest struct {
	IDs    []uuid.UUID `json:"ids"    validate:"required,min=1,max=100"`
	Status string      `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// BulkItemResponse is the outcome of one item of a bulk request.
type BulkItemResponse struct {
	ID    uuid.UUID    `json:"id"`
	Task  *domain.Task `json:"task,omitempty"`
	Error string       `json:"error,omitempty"`
}

// BulkStatusResponse lists the per-item outcomes of a bulk request.
type BulkStatusResponse struct {
	Results []BulkItemResponse `json:"results"`
	Failed  int                `json:"failed"`
}

// TaskListResponse is a page of tasks.
type TaskListResponse struct {
	Tasks  []*domain.Task `json:"tasks"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// RefreshResponse reports how many priorities a refresh changed.
type RefreshResponse struct {
	Updated int `json:"updated"`
}

// NotificationListResponse is the caller's inbox.
type NotificationListResponse struct {
	Notifications []*domain.Notification `json:"notifications"`
	Unread        int                    `json:"unread"`
}

// SettingsRequest is the body of PUT /api/settings. Absent switches are kept.
type SettingsRequest struct {
	AllowUsersPriorityChange         *bool `json:"allow_users_priority_change"`
	AllowUsersTaskForwarding         *bool `json:"allow_users_task_forwarding"`
	RequireApprovalForPriorityChange *bool `json:"require_approval_for_priority_change"`
}
