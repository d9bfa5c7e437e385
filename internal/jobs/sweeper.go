package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

// DefaultSweepSchedule refreshes priorities every five minutes.
const DefaultSweepSchedule = "@every 5m"

// TenantLister returns every tenant that owns tasks.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// PriorityRefresher recomputes the derived priorities of a tenant.
type PriorityRefresher interface {
	RefreshAllPriorities(ctx context.Context, tenantID string) (int, error)
}

// PrioritySweeper keeps derived priorities current as deadlines approach.
type PrioritySweeper struct {
	tenants   TenantLister
	refresher PriorityRefresher
	schedule  string
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPrioritySweeper creates a stopped sweeper. An empty schedule uses
// DefaultSweepSchedule; any robfig/cron expression is accepted.
func NewPrioritySweeper(
	tenants TenantLister,
	refresher PriorityRefresher,
	schedule string,
	logger *slog.Logger,
) (*PrioritySweeper, error) {
	switch {
	case tenants == nil:
		return nil, errors.New("jobs: tenant lister cannot be nil")
	case refresher == nil:
		return nil, errors.New("jobs: refresher cannot be nil")
	case logger == nil:
		return nil, errors.New("jobs: logger cannot be nil")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &PrioritySweeper{
		tenants:   tenants,
		refresher: refresher,
		schedule:  schedule,
		timeout:   time.Minute,
		logger:    logger.With("component", "priority_sweeper"),
		cron:      cron.New(cron.WithLocation(time.UTC)),
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("jobs: invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the sweep on schedule. It does nothing if the
// sweeper is already running.
func (s *PrioritySweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("priority sweeper started", "schedule", s.schedule)
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *PrioritySweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("priority sweeper stopped")
}

func (s *PrioritySweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("priority sweep failed", "error", err)
	}
}

// Sweep refreshes every tenant once and returns how many tasks changed.
// A failing tenant does not stop the others.
func (s *PrioritySweeper) Sweep(ctx context.Context) (int, error) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("jobs: listing tenants: %w", err)
	}

	var errs error
	changed := 0
	for _, tenantID := range tenants {
		n, err := s.refresher.RefreshAllPriorities(ctx, tenantID)
		changed += n
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}

	s.logger.Debug("priority sweep finished",
		"tenants", len(tenants),
		"changed", changed)
	return changed, errs
}
