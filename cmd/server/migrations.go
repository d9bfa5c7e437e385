package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/platform/sqlstore"
)

// handleMigrations runs a goose command against the configured SQL database.
// The memory driver has no schema, so migrating it is an error.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	dialect, ok := sqlDialect(cfg.Database.Driver)
	if !ok {
		return fmt.Errorf("driver %q has no migrations", cfg.Database.Driver)
	}

	db, err := sqlstore.Open(ctx, dialect, cfg.Database.URL, sqlstore.OpenOptions{}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()

	logger.Info("executing migrations", "command", command, "driver", cfg.Database.Driver)
	return sqlstore.Migrate(ctx, db, dialect, command, logger)
}

// sqlDialect maps a configured driver to a SQL dialect.
func sqlDialect(driver string) (sqlstore.Dialect, bool) {
	switch driver {
	case string(sqlstore.DialectPostgres):
		return sqlstore.DialectPostgres, true
	case string(sqlstore.DialectSQLite):
		return sqlstore.DialectSQLite, true
	default:
		return "", false
	}
}
