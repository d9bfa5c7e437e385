package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskflow/internal/redact"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Dialect names the SQL flavour behind a connection.
type Dialect string

// Supported dialects
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// driverName maps a dialect to its database/sql driver.
func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", d)
	}
}

// OpenOptions tunes Open. The zero value pings up to five times.
type OpenOptions struct {
	PingRetries uint64
	PingBackoff time.Duration
}

// Open connects to the database and verifies the connection, retrying the
// ping with exponential backoff while the server comes up.
func Open(ctx context.Context, dialect Dialect, url string, opts OpenOptions, logger *slog.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "sqlstore"), slog.String("dialect", string(dialect)))

	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	switch dialect {
	case DialectSQLite:
		// Each connection to :memory: would see its own empty database.
		db.SetMaxOpenConns(1)
	case DialectPostgres:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	retries := opts.PingRetries
	if retries == 0 {
		retries = 5
	}
	backoff := opts.PingBackoff
	if backoff == 0 {
		backoff = 200 * time.Millisecond
	}

	attempt := 0
	err = retry.Do(ctx, retry.WithMaxRetries(retries, retry.NewExponential(backoff)), func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			log.Warn("database ping failed",
				slog.Int("attempt", attempt),
				redact.Attr(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	log.Info("database connection established", slog.Int("attempts", attempt))
	return db, nil
}

// Stores bundles the SQL stores that share one connection.
type Stores struct {
	Tasks         *TaskStore
	Notifications *NotificationStore
	Activities    *ActivityStore
	Users         *UserStore
	Settings      *SettingsStore
}

// NewStores builds every SQL store over db.
func NewStores(db *sqlx.DB, logger *slog.Logger) *Stores {
	return &Stores{
		Tasks:         NewTaskStore(db, logger),
		Notifications: NewNotificationStore(db, logger),
		Activities:    NewActivityStore(db, logger),
		Users:         NewUserStore(db, logger),
		Settings:      NewSettingsStore(db),
	}
}
