package repository

import (
	"context"
	"testing"

	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "follower")
	b := testutil.CreateUser(t, db, "followee")
	c := testutil.CreateUser(t, db, "bystander")

	t.Run("follow twice keeps one row", func(t *testing.T) {
		require.NoError(t, repo.Follow(ctx, a.ID, b.ID))
		require.NoError(t, repo.Follow(ctx, a.ID, b.ID))

		var n int64
		db.Model(&models.Follow{}).Where("follower_id = ? AND followee_id = ?", a.ID, b.ID).Count(&n)
		assert.Equal(t, int64(1), n)

		following, err := repo.IsFollowing(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, following)

		reverse, err := repo.IsFollowing(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.False(t, reverse)
	})

	t.Run("FollowingAmong", func(t *testing.T) {
		got, err := repo.FollowingAmong(ctx, a.ID, []uint{b.ID, c.ID})
		require.NoError(t, err)
		assert.Equal(t, map[uint]bool{b.ID: true}, got)

		empty, err := repo.FollowingAmong(ctx, 0, []uint{b.ID})
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("anonymous viewer follows nobody", func(t *testing.T) {
		following, err := repo.IsFollowing(ctx, 0, b.ID)
		require.NoError(t, err)
		assert.False(t, following)
	})

	t.Run("unfollow leaves no row and is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Unfollow(ctx, a.ID, b.ID))
		require.NoError(t, repo.Unfollow(ctx, a.ID, b.ID))

		var n int64
		db.Model(&models.Follow{}).Count(&n)
		assert.Zero(t, n)
	})
}
