// Package memdb implements the store interfaces on top of hashicorp/go-memdb.
// It is the default backend: everything lives in process memory, writes are
// serialized by memdb's single-writer transactions and readers see
// consistent snapshots.
package memdb

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-memdb"
)

// Table names.
const (
	tableTasks         = "tasks"
	tableNotifications = "notifications"
	tableActivities    = "activities"
	tableUsers         = "users"
	tableSettings      = "settings"
)

// DB wraps the memdb instance shared by all stores of this package.
type DB struct {
	schema *memdb.DBSchema
	db     *memdb.MemDB
	logger *slog.Logger
}

// New returns an empty in-memory database.
func New(logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbSchema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTasks:         tasksTableSchema(),
			tableNotifications: notificationsTableSchema(),
			tableActivities:    activitiesTableSchema(),
			tableUsers:         usersTableSchema(),
			tableSettings:      settingsTableSchema(),
		},
	}

	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, fmt.Errorf("memdb: schema setup failed: %w", err)
	}

	return &DB{
		schema: dbSchema,
		db:     db,
		logger: logger.With(slog.String("component", "memdb")),
	}, nil
}

func idIndex(field string) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:         "id",
		AllowMissing: false,
		Unique:       true,
		Indexer:      &memdb.StringFieldIndex{Field: field},
	}
}

func stringIndex(name, field string, unique bool) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:         name,
		AllowMissing: false,
		Unique:       unique,
		Indexer:      &memdb.StringFieldIndex{Field: field},
	}
}

func compoundIndex(name string, unique bool, fields ...string) *memdb.IndexSchema {
	indexers := make([]memdb.Indexer, 0, len(fields))
	for _, f := range fields {
		indexers = append(indexers, &memdb.StringFieldIndex{Field: f})
	}
	return &memdb.IndexSchema{
		Name:         name,
		AllowMissing: false,
		Unique:       unique,
		Indexer:      &memdb.CompoundIndex{Indexes: indexers},
	}
}

// collect drains a result iterator.
func collect(iter memdb.ResultIterator) []interface{} {
	var out []interface{}
	for next := iter.Next(); next != nil; next = iter.Next() {
		out = append(out, next)
	}
	return out
}
