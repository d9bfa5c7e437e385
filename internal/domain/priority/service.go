// Package priority derives a task's priority tier from how close its
// deadline is. It is pure: callers inject the current time.
package priority

import (
	"errors"
	"time"

	"github.com/phrazzld/taskflow/internal/domain"
)

// ErrNilTask is returned when a nil task is passed to UpdatePriority.
var ErrNilTask = errors.New("task cannot be nil")

// Service defines the interface for priority calculation
type Service interface {
	// Calculate returns the priority tier for task at time now. A manually
	// pinned priority is returned unchanged.
	Calculate(task *domain.Task, now time.Time) domain.Priority

	// UpdatePriority returns a copy of task with a recomputed priority and
	// an UpdatedAt strictly later than the input's. Overridden tasks keep
	// their priority.
	UpdatePriority(task *domain.Task, now time.Time) (*domain.Task, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new priority service with default thresholds
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new priority service with custom thresholds
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// Calculate implements Service.
func (s *defaultService) Calculate(task *domain.Task, now time.Time) domain.Priority {
	if task.PriorityOverridden {
		return task.Priority
	}
	return classify(task.Deadline.Sub(now).Hours(), s.params)
}

// UpdatePriority implements Service.
func (s *defaultService) UpdatePriority(task *domain.Task, now time.Time) (*domain.Task, error) {
	if task == nil {
		return nil, ErrNilTask
	}

	updated := task.Clone()
	updated.Priority = s.Calculate(task, now)
	updated.UpdatedAt = nextTimestamp(task.UpdatedAt, now)

	return updated, nil
}

// classify maps hours until the deadline to a tier. Negative hours (overdue)
// fall into immediate.
func classify(hoursUntilDeadline float64, params *Params) domain.Priority {
	switch {
	case hoursUntilDeadline <= params.ImmediateHours:
		return domain.PriorityImmediate
	case hoursUntilDeadline <= params.MediumHours:
		return domain.PriorityMedium
	default:
		return domain.PriorityLong
	}
}

// nextTimestamp returns now, or previous+1ns when now does not advance past it.
func nextTimestamp(previous, now time.Time) time.Time {
	if now.After(previous) {
		return now
	}
	return previous.Add(time.Nanosecond)
}
