package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamification-bot/internal/repository"
	"gamification-bot/internal/repository/memstore"
)

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewAccountService(store.Users)

	user, created, err := svc.EnsureUser(ctx, 1, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), user.TotalXP)
	assert.Equal(t, 1, user.Level)

	user, created, err = svc.EnsureUser(ctx, 1, "alice_new")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice_new", user.Username)

	stored, err := svc.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice_new", stored.Username)

	// An empty username never overwrites the stored one.
	user, _, err = svc.EnsureUser(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "alice_new", user.Username)
}

func TestGetUser_NotFound(t *testing.T) {
	svc := NewAccountService(memstore.New().Users)

	_, err := svc.GetUser(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
