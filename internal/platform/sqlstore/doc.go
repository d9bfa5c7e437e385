// Package sqlstore provides SQL implementations of the store interfaces
// defined in internal/store. The same code serves PostgreSQL (through the
// pgx stdlib driver) and SQLite (through modernc.org/sqlite); queries are
// written with ? placeholders and rebound by sqlx for the active driver.
// Schema migrations for each dialect are embedded and applied with goose.
package sqlstore
