package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// LifecycleEvent describes one completed task mutation.
type LifecycleEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type reuses the activity vocabulary: task_created, status_changed, ...
	Type domain.ActivityType `json:"type"`

	TenantID string `json:"tenant_id"`

	// Task is a snapshot taken after the mutation. For deletions it is the
	// task as it was before removal.
	Task *domain.Task `json:"task"`

	ActorID   uuid.UUID `json:"actor_id"`
	ActorName string    `json:"actor_name"`

	// Detail holds the new value where one applies: the new status, the new
	// priority, or the name of the forwarding recipient.
	Detail string `json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewLifecycleEvent creates an event for task. The task is cloned so later
// mutations by the caller do not leak into handlers.
func NewLifecycleEvent(
	typ domain.ActivityType,
	task *domain.Task,
	actorID uuid.UUID,
	actorName string,
	detail string,
) *LifecycleEvent {
	e := &LifecycleEvent{
		ID:        uuid.New(),
		Type:      typ,
		Task:      task.Clone(),
		ActorID:   actorID,
		ActorName: actorName,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if task != nil {
		e.TenantID = task.TenantID
	}
	return e
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *LifecycleEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *LifecycleEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *LifecycleEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *LifecycleEvent) error {
	return f(ctx, event)
}
