package service

import (
	"context"
	"testing"

	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	defaults, err := f.settingsSvc.Get(ctx, testTenant)
	require.NoError(t, err)
	assert.False(t, defaults.AllowUsersPriorityChange)
	assert.False(t, defaults.AllowUsersTaskForwarding)
	assert.True(t, defaults.RequireApprovalForPriorityChange)

	enable := true
	_, err = f.settingsSvc.Update(ctx, testTenant, SettingsUpdate{AllowUsersTaskForwarding: &enable},
		ActorFromUser(f.alice))
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, "only managers can update admin settings", permErr.Error())

	_, err = f.settingsSvc.Update(ctx, testTenant, SettingsUpdate{}, nil)
	assert.ErrorIs(t, err, ErrNilActor)

	updated, err := f.settingsSvc.Update(ctx, testTenant, SettingsUpdate{AllowUsersTaskForwarding: &enable},
		ActorFromUser(f.manager))
	require.NoError(t, err)
	assert.True(t, updated.AllowUsersTaskForwarding)
	assert.False(t, updated.AllowUsersPriorityChange, "untouched fields keep their value")
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, f.manager.ID, *updated.UpdatedBy)

	stored, err := f.settingsSvc.Get(ctx, testTenant)
	require.NoError(t, err)
	assert.True(t, stored.AllowUsersTaskForwarding)

	other, err := f.settingsSvc.Get(ctx, "tenant-2")
	require.NoError(t, err)
	assert.False(t, other.AllowUsersTaskForwarding, "settings are per tenant")
}
