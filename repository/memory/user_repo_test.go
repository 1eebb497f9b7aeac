package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/accounts/domain"
)

func TestUserRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created, err := repo.Create(ctx, &domain.User{NationalID: "111", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, domain.UserStatusActive, created.Status)
	assert.Equal(t, domain.SystemActor, created.CreatedBy)

	_, err = repo.Create(ctx, &domain.User{NationalID: "111", Name: "B"})
	assert.ErrorIs(t, err, domain.ErrDuplicateNationalID)

	name := "B"
	updated, err := repo.Update(ctx, created.ID, domain.UserPatch{Name: &name}, "9")
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Name)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, "9", *updated.UpdatedBy)

	removed, err := repo.SoftDelete(ctx, created.ID, "9")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.SoftDelete(ctx, created.ID, "9")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = repo.Update(ctx, created.ID, domain.UserPatch{Name: &name}, "9")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	again, err := repo.Create(ctx, &domain.User{NationalID: "111", Name: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.ID)
}

func TestUserRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created, err := repo.Create(ctx, &domain.User{NationalID: "111", Name: "A"})
	require.NoError(t, err)
	created.Name = "mutated"

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", found.Name)
}

func TestFindAllSkipsRemovedAndSortsByID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	for _, id := range []string{"1", "2", "3"} {
		_, err := repo.Create(ctx, &domain.User{NationalID: id})
		require.NoError(t, err)
	}
	_, err := repo.SoftDelete(ctx, 2, "")
	require.NoError(t, err)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(3), all[1].ID)
}
