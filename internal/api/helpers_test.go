package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskflow/internal/api/middleware"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/phrazzld/taskflow/internal/testutils"
	"github.com/stretchr/testify/require"
)

const (
	testTenant = testutils.DefaultTenant
	testSecret = "test-secret-that-is-long-enough-for-testing"
)

// testAPI serves the handlers over an in-memory backend.
type testAPI struct {
	router http.Handler
	jwt    auth.JWTService

	manager *domain.User
	alice   *domain.User
	bob     *domain.User
	outside *domain.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	stack := testutils.NewStack(t)
	log := stack.Logger

	jwtService, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)

	authHandler := NewAuthHandler(stack.Users, jwtService, log)
	taskHandler := NewTaskHandler(stack.Tasks, stack.Authorizer, log)
	notificationHandler := NewNotificationHandler(stack.Notifications, log)
	tenantHandler := NewTenantHandler(stack.Activities, stack.Settings, stack.Users, 0, log)
	authMW := middleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Use(middleware.Trace(log))
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/tasks", taskHandler.CreateTask)
			r.Post("/tasks/bulk-status", taskHandler.BulkUpdateStatus)
			r.Post("/tasks/refresh-priorities", taskHandler.RefreshPriorities)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Put("/tasks/{id}", taskHandler.EditTask)
			r.Delete("/tasks/{id}", taskHandler.DeleteTask)
			r.Patch("/tasks/{id}/status", taskHandler.UpdateStatus)
			r.Patch("/tasks/{id}/priority", taskHandler.OverridePriority)
			r.Delete("/tasks/{id}/priority-override", taskHandler.ClearOverride)
			r.Patch("/tasks/{id}/deadline", taskHandler.OverrideDeadline)
			r.Post("/tasks/{id}/forward", taskHandler.ForwardTask)

			r.Get("/notifications", notificationHandler.List)
			r.Post("/notifications/read-all", notificationHandler.MarkAllAsRead)
			r.Post("/notifications/{id}/read", notificationHandler.MarkAsRead)
			r.Delete("/notifications/{id}", notificationHandler.Delete)

			r.Get("/activities", tenantHandler.RecentActivities)
			r.Get("/settings", tenantHandler.GetSettings)
			r.Put("/settings", tenantHandler.UpdateSettings)
			r.Get("/users", tenantHandler.ListUsers)
		})
	})

	return &testAPI{
		router:  r,
		jwt:     jwtService,
		manager: stack.MustCreateUser(t, "Morgan", domain.RoleManager),
		alice:   stack.MustCreateUser(t, "Alice", domain.RoleWorker),
		bob:     stack.MustCreateUser(t, "Bob", domain.RoleWorker),
		outside: stack.MustCreateTenantUser(t, "globex", "Olga", domain.RoleManager),
	}
}

// token signs an access token for user.
func (a *testAPI) token(t *testing.T, user *domain.User) string {
	t.Helper()
	token, err := a.jwt.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	return token
}

// do sends a request as user (nil for anonymous) with body encoded as JSON.
func (a *testAPI) do(t *testing.T, user *domain.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(t, user))
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// createTask creates a task through the API as the manager.
func (a *testAPI) createTask(t *testing.T, title string, in time.Duration, assignee *domain.User) *domain.Task {
	t.Helper()
	body := map[string]any{
		"title":    title,
		"duration": 2,
		"deadline": time.Now().Add(in).UTC().Format(time.RFC3339),
	}
	if assignee != nil {
		body["assigned_to"] = assignee.ID
	}

	rec := a.do(t, a.manager, http.MethodPost, "/api/tasks", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*domain.Task](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}
