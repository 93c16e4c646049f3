//go:build integration

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-ai/lexora/internal/domain"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := NewUserRepository(pool)

	u := &domain.User{
		Username:  "ana",
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	id, err := repo.Create(ctx, u)
	require.NoError(t, err)
	require.Positive(t, id)

	retrieved, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ana", retrieved.Username)
	assert.Equal(t, domain.RoleAdmin, retrieved.Role)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := NewUserRepository(pool)

	_, err := repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := NewUserRepository(pool)

	u := &domain.User{
		Username:  "ben",
		Role:      domain.RoleMember,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	id, err := repo.Create(ctx, u)
	require.NoError(t, err)

	retrieved, err := repo.GetByUsername(ctx, "ben")
	require.NoError(t, err)
	assert.Equal(t, id, retrieved.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_Create_DuplicateUsername(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := NewUserRepository(pool)

	u := &domain.User{Username: "ana", Role: domain.RoleMember, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	_, err := repo.Create(ctx, u)
	require.NoError(t, err)

	_, err = repo.Create(ctx, u)
	assert.Error(t, err)
}
