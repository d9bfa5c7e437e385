// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the lifecycle engine, so the same rules run against the in-memory
// backend or a SQL database.
package store
