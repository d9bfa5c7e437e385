// Package jobs runs the background work of the server: the deadline watcher
// and the periodic priority sweep.
package jobs

import (
	"context"
	"sync"
	"time"
)

// AlertDedup records which alerts were already sent. MarkSent reports true
// only to the first caller for a key. Release forgets a key whose alert could
// not be delivered.
type AlertDedup interface {
	MarkSent(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryDedup is an AlertDedup for a single process. Keys are forgotten when
// the UTC day changes.
type MemoryDedup struct {
	mu   sync.Mutex
	now  func() time.Time
	day  string
	sent map[string]struct{}
}

var _ AlertDedup = (*MemoryDedup)(nil)

// NewMemoryDedup creates an empty MemoryDedup. A nil now uses time.Now.
func NewMemoryDedup(now func() time.Time) *MemoryDedup {
	if now == nil {
		now = time.Now
	}
	return &MemoryDedup{now: now, sent: make(map[string]struct{})}
}

// MarkSent implements AlertDedup.
func (d *MemoryDedup) MarkSent(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if today := d.now().UTC().Format(time.DateOnly); today != d.day {
		d.day = today
		clear(d.sent)
	}
	if _, ok := d.sent[key]; ok {
		return false, nil
	}
	d.sent[key] = struct{}{}
	return true, nil
}

// Release implements AlertDedup.
func (d *MemoryDedup) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sent, key)
	return nil
}

// Len returns the number of keys remembered for the current day.
func (d *MemoryDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}
