package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler implements the EventHandler interface for testing
type recordingHandler struct {
	LastEvent    *LifecycleEvent
	HandlerError error
	HandledCount int
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *LifecycleEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func newTestEvent(t *testing.T) *LifecycleEvent {
	t.Helper()
	task, err := domain.NewTask("tenant-1", "Ship it", "", 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return NewLifecycleEvent(domain.ActivityTaskCreated, task, uuid.New(), "Alice", "")
}

func TestNewLifecycleEvent(t *testing.T) {
	t.Parallel()

	task, err := domain.NewTask("tenant-1", "Ship it", "", 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	actor := uuid.New()

	event := NewLifecycleEvent(domain.ActivityStatusChanged, task, actor, "Alice", "in_progress")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, actor, event.ActorID)
	assert.Equal(t, "in_progress", event.Detail)

	task.Title = "changed later"
	assert.Equal(t, "Ship it", event.Task.Title, "event must hold a snapshot")
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), newTestEvent(t)))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		h1, h2 := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		event := newTestEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, h1.HandledCount)
		assert.Equal(t, 1, h2.HandledCount)
		assert.Same(t, event, h1.LastEvent)
	})

	t.Run("failing handler does not stop the others", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		failing := &recordingHandler{HandlerError: errors.New("handler error")}
		ok := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		err := emitter.EmitEvent(context.Background(), newTestEvent(t))
		assert.EqualError(t, err, "handler error")
		assert.Equal(t, 1, ok.HandledCount)
	})

	t.Run("handler func adapter", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(nil)
		var got domain.ActivityType
		emitter.RegisterHandler(HandlerFunc(func(ctx context.Context, e *LifecycleEvent) error {
			got = e.Type
			return nil
		}))

		require.NoError(t, emitter.EmitEvent(context.Background(), newTestEvent(t)))
		assert.Equal(t, domain.ActivityTaskCreated, got)
	})
}
