package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/taskflow/internal/api"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/platform/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "debug"},
		Database: config.DatabaseConfig{Driver: "memory"},
		Auth: config.AuthConfig{
			JWTSecret:            "thisisatestsecretthatis32charslong!!",
			TokenLifetimeMinutes: 60,
		},
		Priority: config.PriorityConfig{ImmediateHours: 8, MediumHours: 32},
		Watcher:  config.WatcherConfig{Interval: time.Minute},
		Sweep:    config.SweepConfig{Schedule: "@every 5m"},
		Activity: config.ActivityConfig{Retention: 100, DefaultLimit: 20},
		Bulk:     config.BulkConfig{Concurrency: 4},
	}
}

func newTestApplication(t *testing.T, cfg *config.Config) *application {
	t.Helper()

	log, _ := logger.NewTestLogger(t)
	app, err := newApplication(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func TestNewApplication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{name: "memory backend"},
		{
			name:    "short jwt secret",
			mutate:  func(cfg *config.Config) { cfg.Auth.JWTSecret = "short" },
			wantErr: "failed to initialize JWT service",
		},
		{
			name:    "inverted priority thresholds",
			mutate:  func(cfg *config.Config) { cfg.Priority.MediumHours = 1 },
			wantErr: "invalid priority thresholds",
		},
		{
			name:    "bad sweep schedule",
			mutate:  func(cfg *config.Config) { cfg.Sweep.Schedule = "every so often" },
			wantErr: "failed to create priority sweeper",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			if tc.mutate != nil {
				tc.mutate(cfg)
			}

			log, _ := logger.NewTestLogger(t)
			app, err := newApplication(context.Background(), cfg, log)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(app.cleanup)

			assert.NotNil(t, app.taskService)
			assert.NotNil(t, app.watcher)
			assert.NotNil(t, app.sweeper)
		})
	}
}

func TestSQLDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		driver string
		want   sqlstore.Dialect
		ok     bool
	}{
		{"postgres", sqlstore.DialectPostgres, true},
		{"sqlite", sqlstore.DialectSQLite, true},
		{"memory", "", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.driver, func(t *testing.T) {
			t.Parallel()
			got, ok := sqlDialect(tc.driver)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHandleMigrationsRejectsMemoryDriver(t *testing.T) {
	t.Parallel()

	log, _ := logger.NewTestLogger(t)
	err := handleMigrations(context.Background(), testConfig(), sqlstore.MigrateUp, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no migrations")
}

func TestRouterEndToEnd(t *testing.T) {
	t.Parallel()

	app := newTestApplication(t, testConfig())
	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)

	send := func(method, path, token string, body any) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, srv.URL+path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	register := func(email, name, role string) api.AuthResponse {
		t.Helper()
		resp := send(http.MethodPost, "/api/auth/register", "", api.RegisterRequest{
			Email:    email,
			Password: "secret123",
			Name:     name,
			Role:     role,
			TenantID: "acme",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var out api.AuthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	resp := send(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	manager := register("morgan@example.com", "Morgan", "manager")
	worker := register("alice@example.com", "Alice", "worker")

	resp = send(http.MethodPost, "/api/auth/login", "", api.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
		Role:     "worker",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = send(http.MethodPost, "/api/tasks", manager.Token, api.CreateTaskRequest{
		Title:      "Prepare demo",
		Duration:   2,
		Deadline:   time.Now().Add(4 * time.Hour),
		AssignedTo: &worker.User.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task domain.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	assert.Equal(t, domain.PriorityImmediate, task.Priority)

	resp = send(http.MethodPatch, "/api/tasks/"+task.ID.String()+"/status", worker.Token,
		api.StatusRequest{Status: "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = send(http.MethodGet, "/api/activities", manager.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed []domain.Activity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&feed))
	require.Len(t, feed, 2)
	assert.Equal(t, domain.ActivityTaskCompleted, feed[0].Type)

	resp = send(http.MethodGet, "/api/notifications", worker.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inbox api.NotificationListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&inbox))
	assert.NotEmpty(t, inbox.Notifications)
}

func TestRunStopsWithContext(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.Port = 0

	log, _ := logger.NewTestLogger(t)
	app, err := newApplication(context.Background(), cfg, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
