package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

func newTestService(t *testing.T, secret string, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACService(config.AuthConfig{JWTSecret: secret, TokenLifetimeMinutes: 60}, now)
	require.NoError(t, err)
	return svc
}

func newTestUser(t *testing.T) *domain.User {
	t.Helper()
	u, err := domain.NewUser("acme", "Morgan", "morgan@example.com", domain.RoleManager)
	require.NoError(t, err)
	return u
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, testSecret, func() time.Time { return fixedTime })
	user := newTestUser(t)

	token, err := svc.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "acme", claims.TenantID)
	assert.Equal(t, "Morgan", claims.Name)
	assert.Equal(t, domain.RoleManager, claims.Role)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(ts time.Time) func() time.Time { return func() time.Time { return ts } }
	user := newTestUser(t)

	signed := func(t *testing.T, claims jwtCustomClaims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}
	registered := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(fixedTime),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
	}

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newTestService(t, testSecret, at(fixedTime))
				token, err := svc.GenerateToken(context.Background(), user)
				require.NoError(t, err)
				return svc, token
			},
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(t, testSecret, at(fixedTime)).GenerateToken(context.Background(), user)
				require.NoError(t, err)
				return newTestService(t, testSecret, at(fixedTime.Add(2*time.Hour))), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token, err := newTestService(t, testSecret, at(fixedTime)).GenerateToken(context.Background(), user)
				require.NoError(t, err)
				return newTestService(t, wrongSecret, at(fixedTime)), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestService(t, testSecret, at(fixedTime)), "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "empty token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestService(t, testSecret, at(fixedTime)), ""
			},
			wantErr: ErrMissingToken,
		},
		{
			name: "wrong token type",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestService(t, testSecret, at(fixedTime)), signed(t, jwtCustomClaims{
					UserID: user.ID, TenantID: "acme", Role: domain.RoleWorker, TokenType: "refresh",
					RegisteredClaims: registered,
				})
			},
			wantErr: ErrWrongTokenType,
		},
		{
			name: "missing tenant",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestService(t, testSecret, at(fixedTime)), signed(t, jwtCustomClaims{
					UserID: user.ID, Role: domain.RoleWorker, TokenType: tokenTypeAccess,
					RegisteredClaims: registered,
				})
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name: "unknown role",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestService(t, testSecret, at(fixedTime)), signed(t, jwtCustomClaims{
					UserID: user.ID, TenantID: "acme", Role: "admin", TokenType: tokenTypeAccess,
					RegisteredClaims: registered,
				})
			},
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setupFunc(t)
			claims, err := svc.ValidateToken(context.Background(), token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, "acme", claims.TenantID)
		})
	}
}
