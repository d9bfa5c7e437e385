package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/service"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DefaultBulkConcurrency bounds the backend calls of one bulk update.
const DefaultBulkConcurrency = 4

// Option tunes a TaskCache.
type Option func(*TaskCache)

// WithBulkConcurrency sets how many backend calls a bulk update runs at once.
func WithBulkConcurrency(n int) Option {
	return func(c *TaskCache) {
		if n > 0 {
			c.bulkConcurrency = n
		}
	}
}

// WithClock replaces time.Now for local changes.
func WithClock(now func() time.Time) Option {
	return func(c *TaskCache) {
		if now != nil {
			c.now = now
		}
	}
}

// TaskCache holds the task list shown to one user. Writes show up locally at
// once and are rolled back if the backend rejects them.
type TaskCache struct {
	client TaskClient
	logger *slog.Logger

	bulkConcurrency int
	now             func() time.Time

	mu    sync.RWMutex
	tasks []*domain.Task
	// seq numbers every local write. Writes numbered at or below loadSeq
	// started before the last Load and their responses are dropped.
	seq     uint64
	loadSeq uint64
	writes  map[uuid.UUID]*writeState
}

// writeState tracks the optimistic writes of one task.
type writeState struct {
	// confirmed is the last copy the backend returned for the task, and
	// what a failed write falls back to.
	confirmed  *domain.Task
	latest     uint64
	latestDone bool
	latestOK   bool
}

// NewTaskCache creates an empty cache over client. Call Load to fill it.
func NewTaskCache(client TaskClient, log *slog.Logger, opts ...Option) (*TaskCache, error) {
	if client == nil {
		return nil, errors.New("cache: client cannot be nil")
	}
	if log == nil {
		return nil, errors.New("cache: logger cannot be nil")
	}

	c := &TaskCache{
		client:          client,
		logger:          log.With("component", "task_cache"),
		bulkConcurrency: DefaultBulkConcurrency,
		now:             time.Now,
		writes:          make(map[uuid.UUID]*writeState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load replaces the cached list with the backend listing. Responses of
// writes still in flight are ignored afterwards.
func (c *TaskCache) Load(ctx context.Context) error {
	tasks, err := c.client.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("cache: loading tasks: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = make([]*domain.Task, 0, len(tasks))
	c.writes = make(map[uuid.UUID]*writeState, len(tasks))
	for _, t := range tasks {
		c.tasks = append(c.tasks, t.Clone())
		c.writes[t.ID] = &writeState{confirmed: t.Clone()}
	}
	c.loadSeq = c.seq
	return nil
}

// Tasks returns a copy of the cached list.
func (c *TaskCache) Tasks() []*domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.Task, len(c.tasks))
	for i, t := range c.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns a copy of one cached task.
func (c *TaskCache) Get(id uuid.UUID) (*domain.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return c.tasks[i].Clone(), true
}

// UpdateStatus sets the status locally and then on the backend.
func (c *TaskCache) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidTaskStatus
	}
	return c.write(ctx, id, c.statusChange(status), func(ctx context.Context) (*domain.Task, error) {
		return c.client.UpdateStatus(ctx, id, status)
	})
}

// OverridePriority pins the priority locally and then on the backend.
func (c *TaskCache) OverridePriority(ctx context.Context, id uuid.UUID, p domain.Priority) (*domain.Task, error) {
	if !p.IsValid() {
		return nil, domain.ErrInvalidPriority
	}
	local := func(t *domain.Task) {
		t.Priority = p
		t.PriorityOverridden = true
		t.UpdatedAt = c.now().UTC()
	}
	return c.write(ctx, id, local, func(ctx context.Context) (*domain.Task, error) {
		return c.client.OverridePriority(ctx, id, p)
	})
}

// EditTask applies patch locally and then on the backend.
func (c *TaskCache) EditTask(ctx context.Context, id uuid.UUID, patch service.TaskPatch) (*domain.Task, error) {
	return c.write(ctx, id, patch.Apply, func(ctx context.Context) (*domain.Task, error) {
		return c.client.EditTask(ctx, id, patch)
	})
}

// BulkUpdateStatus sets status on every id. Each item is confirmed or rolled
// back on its own; the failures are combined into the returned error.
func (c *TaskCache) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.TaskStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidTaskStatus
	}

	type pending struct {
		id  uuid.UUID
		seq uint64
	}

	var errs error
	started := make([]pending, 0, len(ids))
	change := c.statusChange(status)
	for _, id := range ids {
		seq, err := c.applyLocal(id, change)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		started = append(started, pending{id: id, seq: seq})
	}

	failures := make([]error, len(started))
	var g errgroup.Group
	g.SetLimit(c.bulkConcurrency)
	for i, p := range started {
		i, p := i, p
		g.Go(func() error {
			saved, err := c.client.UpdateStatus(ctx, p.id, status)
			c.settle(p.id, p.seq, saved, err)
			if err != nil {
				failures[i] = fmt.Errorf("task %s: %w", p.id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	errs = multierr.Combine(append([]error{errs}, failures...)...)
	if errs != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("bulk status update partially failed",
			"status", status,
			"requested", len(ids),
			"failed", len(multierr.Errors(errs)))
	}
	return errs
}

func (c *TaskCache) statusChange(status domain.TaskStatus) func(*domain.Task) {
	return func(t *domain.Task) {
		now := c.now().UTC()
		t.Status = status
		if status == domain.TaskStatusCompleted {
			t.CompletedAt = &now
		}
		t.UpdatedAt = now
	}
}

// write runs one optimistic round trip for a single task.
func (c *TaskCache) write(
	ctx context.Context,
	id uuid.UUID,
	local func(*domain.Task),
	remote func(context.Context) (*domain.Task, error),
) (*domain.Task, error) {
	seq, err := c.applyLocal(id, local)
	if err != nil {
		return nil, err
	}

	saved, err := remote(ctx)
	c.settle(id, seq, saved, err)
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Debug("optimistic write rolled back",
			"task_id", id,
			"error", err)
		return nil, err
	}
	return saved.Clone(), nil
}

// applyLocal changes the cached item and returns the sequence number of this
// write.
func (c *TaskCache) applyLocal(id uuid.UUID, change func(*domain.Task)) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return 0, domain.NewNotFoundError("task", id.String())
	}

	state := c.writes[id]
	if state == nil {
		state = &writeState{confirmed: c.tasks[i].Clone()}
		c.writes[id] = state
	}

	next := c.tasks[i].Clone()
	change(next)
	c.tasks[i] = next

	c.seq++
	state.latest = c.seq
	state.latestDone, state.latestOK = false, false
	return c.seq, nil
}

// settle records the backend's answer to write seq. The latest write shows
// its server copy, or the confirmed copy when it failed. An older write only
// changes the item once the latest one has failed, so overlapping failures
// all end on the last state the backend confirmed.
func (c *TaskCache) settle(id uuid.UUID, seq uint64, saved *domain.Task, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.loadSeq {
		return
	}
	state := c.writes[id]
	i := c.indexOf(id)
	if state == nil || i < 0 {
		return
	}

	if seq != state.latest {
		if state.latestDone && state.latestOK {
			return
		}
		if err == nil && saved != nil {
			state.confirmed = saved.Clone()
		}
		if state.latestDone {
			c.tasks[i] = state.confirmed.Clone()
		}
		return
	}

	state.latestDone, state.latestOK = true, err == nil
	if err == nil && saved == nil {
		return
	}
	if err == nil {
		state.confirmed = saved.Clone()
	}
	c.tasks[i] = state.confirmed.Clone()
}

func (c *TaskCache) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(c.tasks, func(t *domain.Task) bool { return t.ID == id })
}
