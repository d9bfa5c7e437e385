package memdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/store"
)

type activityRecord struct {
	ID       string
	TenantID string
	// Seq breaks ties between entries recorded within the same instant.
	Seq      uint64
	Activity *domain.Activity
}

func activitiesTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableActivities,
		Indexes: map[string]*memdb.IndexSchema{
			"id":     idIndex("ID"),
			"tenant": stringIndex("tenant", "TenantID", false),
		},
	}
}

// ActivityStore implements store.ActivityStore.
type ActivityStore struct {
	db     *DB
	seq    atomic.Uint64
	logger *slog.Logger
}

// NewActivityStore creates an activity store backed by db.
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{
		db:     db,
		logger: db.logger.With(slog.String("store", "activity")),
	}
}

var _ store.ActivityStore = (*ActivityStore)(nil)

// FindByTenant implements store.ActivityStore.
func (s *ActivityStore) FindByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.Activity, error) {
	tx := s.db.db.Txn(false)
	defer tx.Abort()

	recs, err := tenantActivities(tx, tenantID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]*domain.Activity, 0, len(recs))
	for _, rec := range recs {
		a := *rec.Activity
		out = append(out, &a)
	}
	return out, nil
}

// Save implements store.ActivityStore. A retention of zero or less keeps
// everything.
func (s *ActivityStore) Save(ctx context.Context, activity *domain.Activity, retention int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if activity.TenantID == "" {
		return fmt.Errorf("%w: activity tenant is empty", store.ErrInvalidEntity)
	}

	tx := s.db.db.Txn(true)
	defer tx.Abort()

	a := *activity
	rec := &activityRecord{
		ID:       a.ID.String(),
		TenantID: a.TenantID,
		Seq:      s.seq.Add(1),
		Activity: &a,
	}
	if err := tx.Insert(tableActivities, rec); err != nil {
		return fmt.Errorf("memdb: activity insert failed: %w", err)
	}

	if retention > 0 {
		recs, err := tenantActivities(tx, a.TenantID)
		if err != nil {
			return err
		}
		for _, old := range recs[min(retention, len(recs)):] {
			if err := tx.Delete(tableActivities, old); err != nil {
				return fmt.Errorf("memdb: activity eviction failed: %w", err)
			}
		}
		if evicted := len(recs) - retention; evicted > 0 {
			log.Debug("evicted old activity entries",
				slog.String("tenant_id", a.TenantID),
				slog.Int("evicted", evicted))
		}
	}

	tx.Commit()
	return nil
}

// tenantActivities returns the tenant's records newest first.
func tenantActivities(tx *memdb.Txn, tenantID string) ([]*activityRecord, error) {
	iter, err := tx.Get(tableActivities, "tenant", tenantID)
	if err != nil {
		return nil, fmt.Errorf("memdb: activity lookup failed: %w", err)
	}

	var recs []*activityRecord
	for _, raw := range collect(iter) {
		recs = append(recs, raw.(*activityRecord))
	}
	sort.Slice(recs, func(i, j int) bool {
		ti, tj := recs[i].Activity.Timestamp, recs[j].Activity.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return recs[i].Seq > recs[j].Seq
	})
	return recs, nil
}
