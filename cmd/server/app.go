package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/taskflow/internal/authz"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/domain/priority"
	"github.com/phrazzld/taskflow/internal/events"
	"github.com/phrazzld/taskflow/internal/jobs"
	"github.com/phrazzld/taskflow/internal/platform/memdb"
	"github.com/phrazzld/taskflow/internal/platform/redis"
	"github.com/phrazzld/taskflow/internal/platform/sqlstore"
	"github.com/phrazzld/taskflow/internal/redact"
	"github.com/phrazzld/taskflow/internal/service"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/phrazzld/taskflow/internal/store"
)

// stores is the persistence backend selected by the database driver.
type stores struct {
	tasks         store.TaskStore
	users         store.UserStore
	settings      store.SettingsStore
	notifications store.NotificationStore
	activities    store.ActivityStore
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	stores  stores
	closers []io.Closer

	authorizer *authz.Authorizer
	jwtService auth.JWTService

	taskService         service.TaskService
	notificationService service.NotificationService
	activityService     service.ActivityService
	settingsService     service.SettingsService
	userService         service.UserService

	eventEmitter *events.InMemoryEventEmitter
	watcher      *jobs.DeadlineWatcher
	sweeper      *jobs.PrioritySweeper
}

// newApplication creates a new application instance with all dependencies
// initialized. Background jobs are built but not started; Run starts them.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.openStores(ctx); err != nil {
		return nil, err
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if err := app.initServices(); err != nil {
		app.cleanup()
		return nil, err
	}

	if err := app.initJobs(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// openStores selects the backend named by the database driver.
func (app *application) openStores(ctx context.Context) error {
	cfg := app.config.Database

	if dialect, ok := sqlDialect(cfg.Driver); ok {
		db, err := sqlstore.Open(ctx, dialect, cfg.URL, sqlstore.OpenOptions{}, app.logger)
		if err != nil {
			return err
		}
		app.logger.Info("using SQL storage",
			"driver", cfg.Driver,
			"url", redact.String(cfg.URL))
		app.closers = append(app.closers, db)

		sql := sqlstore.NewStores(db, app.logger)
		app.stores = stores{
			tasks:         sql.Tasks,
			users:         sql.Users,
			settings:      sql.Settings,
			notifications: sql.Notifications,
			activities:    sql.Activities,
		}
		return nil
	}

	db, err := memdb.New(app.logger)
	if err != nil {
		return fmt.Errorf("failed to create in-memory database: %w", err)
	}
	app.stores = stores{
		tasks:         memdb.NewTaskStore(db),
		users:         memdb.NewUserStore(db),
		settings:      memdb.NewSettingsStore(db),
		notifications: memdb.NewNotificationStore(db),
		activities:    memdb.NewActivityStore(db),
	}
	app.logger.Info("using in-memory storage; data is lost on restart")
	return nil
}

func (app *application) initServices() error {
	cfg := app.config
	var err error

	app.authorizer, err = authz.New()
	if err != nil {
		return fmt.Errorf("failed to create authorizer: %w", err)
	}

	params, err := priority.NewParams(priority.ParamsConfig{
		ImmediateHours: cfg.Priority.ImmediateHours,
		MediumHours:    cfg.Priority.MediumHours,
	})
	if err != nil {
		return fmt.Errorf("invalid priority thresholds: %w", err)
	}

	app.notificationService, err = service.NewNotificationService(app.stores.notifications, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create notification service: %w", err)
	}

	app.activityService, err = service.NewActivityService(app.stores.activities, cfg.Activity.Retention, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create activity service: %w", err)
	}

	app.settingsService, err = service.NewSettingsService(app.stores.settings, app.authorizer, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create settings service: %w", err)
	}

	app.userService, err = service.NewUserService(app.stores.users, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create user service: %w", err)
	}

	// Lifecycle events feed the activity log.
	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.RegisterHandler(app.activityService)

	app.taskService, err = service.NewTaskService(
		app.stores.tasks,
		app.stores.users,
		app.stores.settings,
		app.notificationService,
		priority.NewServiceWithParams(params),
		app.authorizer,
		app.eventEmitter,
		app.logger,
		service.WithBulkConcurrency(cfg.Bulk.Concurrency),
	)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}
	return nil
}

func (app *application) initJobs(ctx context.Context) error {
	cfg := app.config

	var dedup jobs.AlertDedup = jobs.NewMemoryDedup(nil)
	if cfg.Watcher.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.Watcher.RedisURL, app.logger)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, client)
		dedup = redis.NewAlertDedup(client, redis.DefaultDedupTTL)
	}

	var err error
	app.watcher, err = jobs.NewDeadlineWatcher(
		app.stores.tasks,
		app.notificationService,
		dedup,
		jobs.WatcherConfig{Interval: cfg.Watcher.Interval},
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create deadline watcher: %w", err)
	}

	app.sweeper, err = jobs.NewPrioritySweeper(app.stores.tasks, app.taskService, cfg.Sweep.Schedule, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create priority sweeper: %w", err)
	}
	return nil
}

// Run starts the background jobs and serves HTTP until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	app.watcher.Start(ctx)
	app.sweeper.Start()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.watcher != nil {
		app.watcher.Stop()
	}
	if app.sweeper != nil {
		app.sweeper.Stop()
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error("Error closing resource", "error", err)
		}
	}
	app.closers = nil

	app.logger.Info("Application shutdown completed")
}
