// Package service implements the task lifecycle engine and the notification,
// activity, settings and user services around it.
package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/store"
)

// Error handling principles:
// 1. Domain errors (not found, permission, validation) pass through untouched
// 2. Store "not found" errors are mapped to *domain.NotFoundError
// 3. store.ErrVersionConflict and store.ErrDuplicate pass through so the API can answer 409
// 4. Everything else is wrapped in *ServiceError
var (
	// ErrVersionConflict is returned when a task kept changing underneath
	// an update after every retry was used up.
	// API layer should map this to HTTP 409 Conflict.
	ErrVersionConflict = store.ErrVersionConflict

	// ErrNilActor is returned by operations that need to know who acts.
	ErrNilActor = errors.New("actor cannot be nil")
)

// ServiceError wraps errors from the services with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "forward_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// It returns known sentinel and domain errors directly without wrapping.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrPermission),
		errors.Is(err, domain.ErrValidation):
		return err
	case errors.Is(err, store.ErrTaskNotFound):
		return domain.NewNotFoundError("task", "")
	case errors.Is(err, store.ErrUserNotFound):
		return domain.NewNotFoundError("user", "")
	case errors.Is(err, store.ErrNotificationNotFound):
		return domain.NewNotFoundError("notification", "")
	case errors.Is(err, store.ErrNotFound):
		return domain.NewNotFoundError("entity", "")
	case errors.Is(err, store.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, store.ErrDuplicate):
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// createServiceError reports a missing constructor dependency.
func createServiceError(message string) error {
	return &ServiceError{
		Operation: "create_service",
		Message:   message,
	}
}
