package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid credentials",
			body:       LoginRequest{Email: a.alice.Email, Password: "secret123"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "matching role",
			body:       LoginRequest{Email: a.manager.Email, Password: "secret123", Role: "manager"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "role mismatch",
			body:       LoginRequest{Email: a.alice.Email, Password: "secret123", Role: "manager"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "short password",
			body:       LoginRequest{Email: a.alice.Email, Password: "abc"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "unknown email",
			body:       LoginRequest{Email: "nobody@example.com", Password: "secret123"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "malformed email",
			body:       LoginRequest{Email: "alice", Password: "secret123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := a.do(t, nil, http.MethodPost, "/api/auth/login", tc.body)
			require.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())

			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, errorMessage(t, rec))
			}
			if tc.wantStatus != http.StatusOK {
				return
			}

			resp := decode[AuthResponse](t, rec)
			require.NotNil(t, resp.User)
			assert.NotEmpty(t, resp.Token)
			assert.NotEmpty(t, resp.ExpiresAt)

			claims, err := a.jwt.ValidateToken(context.Background(), resp.Token)
			require.NoError(t, err)
			assert.Equal(t, resp.User.ID, claims.UserID)
			assert.Equal(t, testTenant, claims.TenantID)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	body := RegisterRequest{
		Email:    "casey@example.com",
		Password: "secret123",
		Name:     "Casey",
		Role:     "worker",
		TenantID: testTenant,
	}

	rec := a.do(t, nil, http.MethodPost, "/api/auth/register", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[AuthResponse](t, rec)
	assert.Equal(t, domain.RoleWorker, resp.User.Role)
	assert.Equal(t, "Casey", resp.User.Name)

	rec = a.do(t, nil, http.MethodPost, "/api/auth/register", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body.Email = "other@example.com"
	body.Role = "admin"
	rec = a.do(t, nil, http.MethodPost, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
