package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"go.uber.org/multierr"
)

// DefaultWatchInterval is how often the watcher looks for overdue tasks.
const DefaultWatchInterval = time.Minute

// OverdueFinder returns the open, assigned tasks whose deadline is before now.
type OverdueFinder interface {
	FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error)
}

// DeadlineNotifier delivers a deadline alert to a user.
type DeadlineNotifier interface {
	CreateDeadlineAlert(ctx context.Context, task *domain.Task, userID uuid.UUID) (*domain.Notification, error)
}

// WatcherConfig holds the settings of a DeadlineWatcher.
type WatcherConfig struct {
	// Interval between passes. Zero uses DefaultWatchInterval.
	Interval time.Duration

	// Now replaces time.Now.
	Now func() time.Time
}

// DeadlineWatcher sends one deadline alert per overdue task and UTC day.
type DeadlineWatcher struct {
	tasks    OverdueFinder
	notifier DeadlineNotifier
	dedup    AlertDedup
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeadlineWatcher creates a stopped watcher.
func NewDeadlineWatcher(
	tasks OverdueFinder,
	notifier DeadlineNotifier,
	dedup AlertDedup,
	config WatcherConfig,
	logger *slog.Logger,
) (*DeadlineWatcher, error) {
	switch {
	case tasks == nil:
		return nil, errors.New("jobs: task finder cannot be nil")
	case notifier == nil:
		return nil, errors.New("jobs: notifier cannot be nil")
	case dedup == nil:
		return nil, errors.New("jobs: dedup cannot be nil")
	case logger == nil:
		return nil, errors.New("jobs: logger cannot be nil")
	}

	if config.Interval <= 0 {
		config.Interval = DefaultWatchInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &DeadlineWatcher{
		tasks:    tasks,
		notifier: notifier,
		dedup:    dedup,
		interval: config.Interval,
		now:      config.Now,
		logger:   logger.With("component", "deadline_watcher"),
	}, nil
}

// Start launches the polling loop. Calling Start on a running watcher does
// nothing. The loop ends when ctx is cancelled or Stop is called.
func (w *DeadlineWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("deadline watcher started", "interval", w.interval)
}

// Stop ends the polling loop and waits for a pass in progress to finish.
// It is safe to call more than once.
func (w *DeadlineWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	w.logger.Info("deadline watcher stopped")
}

func (w *DeadlineWatcher) run(ctx context.Context) {
	defer w.wg.Done()

	w.pass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *DeadlineWatcher) pass(ctx context.Context) {
	if _, err := w.CheckNow(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("deadline check failed", "error", err)
	}
}

// CheckNow runs a single pass and returns how many alerts it sent.
func (w *DeadlineWatcher) CheckNow(ctx context.Context) (int, error) {
	now := w.now().UTC()
	overdue, err := w.tasks.FindOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("jobs: finding overdue tasks: %w", err)
	}

	var errs error
	sent := 0
	for _, task := range overdue {
		if ctx.Err() != nil {
			return sent, multierr.Append(errs, ctx.Err())
		}
		if task.AssignedTo == nil || !task.IsOverdue(now) {
			continue
		}

		key := alertKey(task.ID, now)
		first, err := w.dedup.MarkSent(ctx, key)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !first {
			continue
		}

		if _, err := w.notifier.CreateDeadlineAlert(ctx, task, *task.AssignedTo); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			// The next pass retries the alert.
			if err := w.dedup.Release(ctx, key); err != nil {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		sent++
	}

	if sent > 0 {
		w.logger.Info("deadline alerts sent", "count", sent, "overdue", len(overdue))
	}
	return sent, errs
}

// alertKey identifies the alert of one task on one UTC day.
func alertKey(taskID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("deadline:%s:%s", taskID, now.UTC().Format(time.DateOnly))
}
