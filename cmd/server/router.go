package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.authorizer, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notificationService, app.logger)
	tenantHandler := api.NewTenantHandler(
		app.activityService,
		app.settingsService,
		app.userService,
		app.config.Activity.DefaultLimit,
		app.logger,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.ListTasks)
				r.Post("/", taskHandler.CreateTask)
				r.Post("/bulk-status", taskHandler.BulkUpdateStatus)
				r.Post("/refresh-priorities", taskHandler.RefreshPriorities)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.GetTask)
					r.Put("/", taskHandler.EditTask)
					r.Delete("/", taskHandler.DeleteTask)
					r.Patch("/status", taskHandler.UpdateStatus)
					r.Patch("/priority", taskHandler.OverridePriority)
					r.Delete("/priority-override", taskHandler.ClearOverride)
					r.Patch("/deadline", taskHandler.OverrideDeadline)
					r.Post("/forward", taskHandler.ForwardTask)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Post("/read-all", notificationHandler.MarkAllAsRead)
				r.Post("/{id}/read", notificationHandler.MarkAsRead)
				r.Delete("/{id}", notificationHandler.Delete)
			})

			r.Get("/activities", tenantHandler.RecentActivities)
			r.Get("/settings", tenantHandler.GetSettings)
			r.Put("/settings", tenantHandler.UpdateSettings)
			r.Get("/users", tenantHandler.ListUsers)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
