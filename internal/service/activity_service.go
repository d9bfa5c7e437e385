package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

// Feed bounds.
const (
	DefaultActivityLimit     = 20
	MaxActivityLimit         = 100
	DefaultActivityRetention = 100
)

// ActivityService records and lists the per-tenant activity feed.
type ActivityService interface {
	events.EventHandler

	// Record appends an entry with a server-assigned ID and timestamp.
	Record(
		ctx context.Context,
		tenantID string,
		typ domain.ActivityType,
		message string,
		actor *Actor,
		task *domain.Task,
	) (*domain.Activity, error)

	// Recent returns the newest entries of the tenant. limit <= 0 means the
	// default limit; limits above the maximum are clamped.
	Recent(ctx context.Context, tenantID string, limit int) ([]*domain.Activity, error)
}

// activityServiceImpl implements the ActivityService interface
type activityServiceImpl struct {
	activityStore store.ActivityStore
	retention     int
	logger        *slog.Logger
}

// NewActivityService creates a new ActivityService keeping at most retention
// entries per tenant. A non-positive retention selects the default.
func NewActivityService(
	activityStore store.ActivityStore,
	retention int,
	logger *slog.Logger,
) (ActivityService, error) {
	if activityStore == nil {
		return nil, createServiceError("activityStore cannot be nil")
	}
	if logger == nil {
		return nil, createServiceError("logger cannot be nil")
	}
	if retention <= 0 {
		retention = DefaultActivityRetention
	}

	return &activityServiceImpl{
		activityStore: activityStore,
		retention:     retention,
		logger:        logger.With("component", "activity_service"),
	}, nil
}

// Record implements ActivityService.
func (s *activityServiceImpl) Record(
	ctx context.Context,
	tenantID string,
	typ domain.ActivityType,
	message string,
	actor *Actor,
	task *domain.Task,
) (*domain.Activity, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	activity, err := domain.NewActivity(tenantID, typ, message, actorID(actor), actorName(actor))
	if err != nil {
		return nil, NewServiceError("record_activity", "invalid activity", err)
	}
	activity.WithTask(task)

	if err := s.activityStore.Save(ctx, activity, s.retention); err != nil {
		log.Error("failed to record activity",
			"error", err,
			"tenant_id", tenantID,
			"type", typ)
		return nil, NewServiceError("record_activity", "failed to save activity", err)
	}

	return activity, nil
}

// Recent implements ActivityService.
func (s *activityServiceImpl) Recent(ctx context.Context, tenantID string, limit int) ([]*domain.Activity, error) {
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}

	activities, err := s.activityStore.FindByTenant(ctx, tenantID, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load activities",
			"error", err,
			"tenant_id", tenantID)
		return nil, NewServiceError("recent_activities", "failed to load activities", err)
	}
	return activities, nil
}

// HandleEvent turns a task lifecycle event into a feed entry.
func (s *activityServiceImpl) HandleEvent(ctx context.Context, event *events.LifecycleEvent) error {
	message := activityMessage(event)
	if message == "" {
		logger.FromContextOrDefault(ctx, s.logger).Debug("ignoring event without activity",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	actor := &Actor{ID: event.ActorID, Name: event.ActorName}
	_, err := s.Record(ctx, event.TenantID, event.Type, message, actor, event.Task)
	return err
}

// activityMessage renders the feed text for event, or "" when the event
// type has no feed entry.
func activityMessage(event *events.LifecycleEvent) string {
	if event == nil || event.Task == nil {
		return ""
	}

	name := event.ActorName
	if name == "" {
		name = systemActorName
	}
	title := event.Task.Title

	switch event.Type {
	case domain.ActivityTaskCreated:
		return fmt.Sprintf("%s created task \"%s\"", name, title)
	case domain.ActivityTaskCompleted:
		return fmt.Sprintf("%s completed task \"%s\"", name, title)
	case domain.ActivityStatusChanged:
		return fmt.Sprintf("%s changed status of \"%s\" to %s", name, title, event.Detail)
	case domain.ActivityPriorityChanged:
		return fmt.Sprintf("%s changed priority of \"%s\" to %s", name, title, event.Detail)
	case domain.ActivityTaskUpdated:
		return fmt.Sprintf("%s updated task \"%s\"", name, title)
	case domain.ActivityTaskForwarded:
		return fmt.Sprintf("%s forwarded \"%s\" to %s", name, title, event.Detail)
	case domain.ActivityTaskDeleted:
		return fmt.Sprintf("%s deleted task \"%s\"", name, title)
	default:
		return ""
	}
}
