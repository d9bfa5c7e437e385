package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminSettings holds the per-tenant switches managers use to widen what
// workers may do.
type AdminSettings struct {
	TenantID                         string     `json:"tenant_id"`
	AllowUsersPriorityChange         bool       `json:"allow_users_priority_change"`
	AllowUsersTaskForwarding         bool       `json:"allow_users_task_forwarding"`
	RequireApprovalForPriorityChange bool       `json:"require_approval_for_priority_change"`
	UpdatedBy                        *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt                        time.Time  `json:"updated_at"`
}

// DefaultAdminSettings returns the settings a tenant starts with.
func DefaultAdminSettings(tenantID string) *AdminSettings {
	return &AdminSettings{
		TenantID:                         tenantID,
		AllowUsersPriorityChange:         false,
		AllowUsersTaskForwarding:         false,
		RequireApprovalForPriorityChange: true,
		UpdatedAt:                        time.Now().UTC(),
	}
}
