package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/service/auth"
	"github.com/stretchr/testify/assert"
)

func TestMockJWTServiceDefaults(t *testing.T) {
	t.Parallel()

	claims := &auth.Claims{UserID: uuid.New()}
	m := &MockJWTService{Token: "tok", Claims: claims}

	token, err := m.GenerateToken(context.Background(), &domain.User{})
	assert.NoError(t, err)
	assert.Equal(t, "tok", token)

	got, err := m.ValidateToken(context.Background(), "tok")
	assert.NoError(t, err)
	assert.Equal(t, claims, got)

	m.ValidateErr = auth.ErrInvalidToken
	got, err = m.ValidateToken(context.Background(), "tok")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.Nil(t, got)
}

func TestMockJWTServiceFunctions(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	m := &MockJWTService{
		Token: "unused",
		GenerateTokenFn: func(_ context.Context, user *domain.User) (string, error) {
			return "token-for-" + user.Name, nil
		},
		ValidateTokenFn: func(context.Context, string) (*auth.Claims, error) {
			return nil, boom
		},
	}

	token, err := m.GenerateToken(context.Background(), &domain.User{Name: "alice"})
	assert.NoError(t, err)
	assert.Equal(t, "token-for-alice", token)

	_, err = m.ValidateToken(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}
