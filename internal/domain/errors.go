// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the root of every "entity absent" error raised by the
	// lifecycle engine, regardless of which store reported it.
	ErrNotFound = errors.New("not found")

	// ErrPermission is returned when the acting user is not allowed to
	// perform the requested operation.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")
)

// NotFoundError describes a missing task, user or notification.
type NotFoundError struct {
	Entity  string
	ID      string
	Message string
}

// NewNotFoundError builds a NotFoundError with the default message for entity.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// Unwrap makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// PermissionError describes an operation the actor is not allowed to run.
type PermissionError struct {
	Action string
	Reason string
}

// NewPermissionError builds a PermissionError.
func NewPermissionError(action, reason string) *PermissionError {
	return &PermissionError{Action: action, Reason: reason}
}

// Error implements the error interface for PermissionError.
func (e *PermissionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("not allowed to %s", e.Action)
}

// Unwrap makes PermissionError match ErrPermission.
func (e *PermissionError) Unwrap() error {
	return ErrPermission
}

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes ValidationError match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
