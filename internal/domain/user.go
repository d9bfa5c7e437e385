package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role determines what a user may do within a tenant.
type Role string

// Possible role values
const (
	RoleWorker  Role = "worker"
	RoleManager Role = "manager"
)

// Common validation errors for User
var (
	ErrEmptyUserID     = NewValidationError("id", "user ID cannot be empty")
	ErrEmptyUserName   = NewValidationError("name", "user name cannot be empty")
	ErrEmptyEmail      = NewValidationError("email", "email cannot be empty")
	ErrInvalidUserRole = NewValidationError("role", "invalid user role")
	ErrEmptyTenantID   = NewValidationError("tenant_id", "tenant ID cannot be empty")
)

// User is a member of a tenant. Email is unique within the tenant.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new User in the given tenant.
// Returns an error if validation fails.
func NewUser(tenantID, name, email string, role Role) (*User, error) {
	user := &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.TenantID == "" {
		return ErrEmptyTenantID
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyUserName
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}
	if !u.Role.IsValid() {
		return ErrInvalidUserRole
	}
	return nil
}

// IsManager reports whether the user has the manager role.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleWorker, RoleManager:
		return true
	default:
		return false
	}
}

// validateEmailFormat requires a non-empty local part and a dotted domain.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domainPart := email[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
