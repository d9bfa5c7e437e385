package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type MockTenantLister struct {
	mock.Mock
}

func (m *MockTenantLister) ListTenants(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tenants, _ := args.Get(0).([]string)
	return tenants, args.Error(1)
}

type MockPriorityRefresher struct {
	mock.Mock
}

func (m *MockPriorityRefresher) RefreshAllPriorities(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func TestNewPrioritySweeper(t *testing.T) {
	t.Parallel()

	log, _ := logger.NewTestLogger(t)
	lister, refresher := &MockTenantLister{}, &MockPriorityRefresher{}

	tests := []struct {
		name      string
		lister    TenantLister
		refresher PriorityRefresher
		schedule  string
		wantErr   bool
	}{
		{name: "default schedule", lister: lister, refresher: refresher},
		{name: "cron expression", lister: lister, refresher: refresher, schedule: "*/10 * * * *"},
		{name: "bad schedule", lister: lister, refresher: refresher, schedule: "every now and then", wantErr: true},
		{name: "nil lister", refresher: refresher, wantErr: true},
		{name: "nil refresher", lister: lister, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewPrioritySweeper(tt.lister, tt.refresher, tt.schedule, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.schedule == "" {
				assert.Equal(t, DefaultSweepSchedule, s.schedule)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	t.Parallel()

	log, _ := logger.NewTestLogger(t)

	t.Run("refreshes every tenant", func(t *testing.T) {
		t.Parallel()
		lister, refresher := &MockTenantLister{}, &MockPriorityRefresher{}
		lister.On("ListTenants", mock.Anything).Return([]string{"acme", "globex", "initech"}, nil)
		refresher.On("RefreshAllPriorities", mock.Anything, "acme").Return(2, nil)
		refresher.On("RefreshAllPriorities", mock.Anything, "globex").Return(0, errors.New("store offline"))
		refresher.On("RefreshAllPriorities", mock.Anything, "initech").Return(1, nil)

		s, err := NewPrioritySweeper(lister, refresher, "", log)
		require.NoError(t, err)

		changed, err := s.Sweep(context.Background())
		assert.Equal(t, 3, changed)
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 1)
		assert.Contains(t, err.Error(), "tenant globex")
		refresher.AssertNumberOfCalls(t, "RefreshAllPriorities", 3)
	})

	t.Run("tenant listing failure", func(t *testing.T) {
		t.Parallel()
		lister, refresher := &MockTenantLister{}, &MockPriorityRefresher{}
		lister.On("ListTenants", mock.Anything).Return(nil, errors.New("boom"))

		s, err := NewPrioritySweeper(lister, refresher, "", log)
		require.NoError(t, err)

		_, err = s.Sweep(context.Background())
		assert.ErrorContains(t, err, "listing tenants")
		refresher.AssertNotCalled(t, "RefreshAllPriorities", mock.Anything, mock.Anything)
	})
}

func TestSweeperStartStop(t *testing.T) {
	t.Parallel()

	log, _ := logger.NewTestLogger(t)
	lister, refresher := &MockTenantLister{}, &MockPriorityRefresher{}
	swept := make(chan struct{}, 8)
	lister.On("ListTenants", mock.Anything).
		Run(func(mock.Arguments) { swept <- struct{}{} }).
		Return([]string{}, nil)

	s, err := NewPrioritySweeper(lister, refresher, "@every 1s", log)
	require.NoError(t, err)

	s.Start()
	s.Start()

	select {
	case <-swept:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}

	s.Stop()
	s.Stop()
	assert.False(t, s.running)
}
