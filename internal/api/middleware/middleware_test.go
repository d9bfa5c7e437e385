package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/mocks"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	claims := &auth.Claims{
		UserID:   uuid.New(),
		TenantID: "acme",
		Name:     "Alice",
		Role:     domain.RoleWorker,
	}

	tests := []struct {
		name        string
		header      string
		validateErr error
		wantStatus  int
		wantError   string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lower-case scheme", header: "bearer good", wantStatus: http.StatusOK},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authorization header required",
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid authorization format",
		},
		{
			name:       "empty token",
			header:     "Bearer ",
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid authorization format",
		},
		{
			name:        "expired token",
			header:      "Bearer stale",
			validateErr: auth.ErrExpiredToken,
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Token expired",
		},
		{
			name:        "invalid token",
			header:      "Bearer forged",
			validateErr: auth.ErrInvalidToken,
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Invalid token",
		},
		{
			name:        "unexpected failure",
			header:      "Bearer odd",
			validateErr: errors.New("key store offline"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Authentication error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotToken string
			jwtService := &mocks.MockJWTService{
				ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
					gotToken = token
					if tc.validateErr != nil {
						return nil, tc.validateErr
					}
					return claims, nil
				},
			}

			var seen *auth.Claims
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = shared.ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			NewAuthMiddleware(jwtService).Authenticate(next).ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantError == "" {
				assert.Equal(t, "good", gotToken)
				assert.Equal(t, claims, seen)
				return
			}

			assert.Nil(t, seen)
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantError, body.Error)
		})
	}
}

func TestTrace(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)

	var traceID, requestID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		requestID = logger.RequestIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	t.Run("reuses the chi request id", func(t *testing.T) {
		handler := chimw.RequestID(Trace(log)(next))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, traceID)
		assert.Equal(t, traceID, requestID)
		assert.Contains(t, buf.String(), "inside handler")
	})

	t.Run("generates an id without RequestID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Trace(log)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		_, err := uuid.Parse(traceID)
		assert.NoError(t, err)
	})
}
