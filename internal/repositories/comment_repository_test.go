package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anonto42/nano-midea/comments/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenSQL(&config.Config{
		DBDriver:       config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "comments.db"),
		DBMaxOpenConns: 1,
		LogLevel:       "off",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		(&config.DB{SQL: db}).CloseDB()
	})
	return db
}

func TestCommentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresCommentRepository(newTestDB(t))

	t.Run("insert", func(t *testing.T) {
		comment, err := repo.Insert(ctx, 7, 1, "hello")
		require.NoError(t, err)
		assert.Greater(t, comment.ID, int64(0))
		assert.Equal(t, int64(7), comment.UserID)
		assert.Equal(t, int64(1), comment.PostID)
		assert.Equal(t, "hello", comment.Text)
		assert.False(t, comment.Timestamp.IsZero())
	})

	t.Run("ids increase with insertion order", func(t *testing.T) {
		first, err := repo.Insert(ctx, 7, 1, "a")
		require.NoError(t, err)
		second, err := repo.Insert(ctx, 7, 1, "b")
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("conditional update by owner", func(t *testing.T) {
		comment, err := repo.Insert(ctx, 7, 2, "before")
		require.NoError(t, err)

		updated, err := repo.ConditionalUpdate(ctx, comment.ID, 7, "after")
		require.NoError(t, err)
		assert.Equal(t, comment.ID, updated.ID)
		assert.Equal(t, "after", updated.Text)
		assert.Equal(t, int64(2), updated.PostID)
		assert.Equal(t, int64(7), updated.UserID)
		assert.False(t, updated.Timestamp.IsZero())
	})

	t.Run("conditional update by another user", func(t *testing.T) {
		comment, err := repo.Insert(ctx, 7, 2, "mine")
		require.NoError(t, err)

		_, err = repo.ConditionalUpdate(ctx, comment.ID, 9, "theirs")
		assert.ErrorIs(t, err, ErrNotFound)

		unchanged, err := repo.ConditionalPatch(ctx, comment.ID, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, "mine", unchanged.Text)
	})

	t.Run("conditional update of a missing comment", func(t *testing.T) {
		_, err := repo.ConditionalUpdate(ctx, 999999, 7, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("conditional patch", func(t *testing.T) {
		comment, err := repo.Insert(ctx, 7, 3, "original")
		require.NoError(t, err)

		same, err := repo.ConditionalPatch(ctx, comment.ID, 7, map[string]interface{}{})
		require.NoError(t, err)
		assert.Equal(t, "original", same.Text)

		patched, err := repo.ConditionalPatch(ctx, comment.ID, 7, map[string]interface{}{"text": "patched"})
		require.NoError(t, err)
		assert.Equal(t, "patched", patched.Text)

		_, err = repo.ConditionalPatch(ctx, comment.ID, 9, nil)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.ConditionalPatch(ctx, comment.ID, 9, map[string]interface{}{"text": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("conditional delete", func(t *testing.T) {
		comment, err := repo.Insert(ctx, 7, 4, "bye")
		require.NoError(t, err)

		assert.ErrorIs(t, repo.ConditionalDelete(ctx, comment.ID, 9), ErrNotFound)
		assert.NoError(t, repo.ConditionalDelete(ctx, comment.ID, 7))
		assert.ErrorIs(t, repo.ConditionalDelete(ctx, comment.ID, 7), ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

func TestCommentRepositoryListPage(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresCommentRepository(newTestDB(t))

	t.Run("empty table", func(t *testing.T) {
		items, hasMore, err := repo.ListPage(ctx, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.False(t, hasMore)
	})

	const total = 7
	for i := 0; i < total; i++ {
		_, err := repo.Insert(ctx, 1, 1, "comment")
		require.NoError(t, err)
	}

	t.Run("first page is newest first", func(t *testing.T) {
		items, hasMore, err := repo.ListPage(ctx, 3, nil)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.True(t, hasMore)
		assert.Greater(t, items[0].ID, items[1].ID)
		assert.Greater(t, items[1].ID, items[2].ID)
	})

	t.Run("cursor is exclusive", func(t *testing.T) {
		first, _, err := repo.ListPage(ctx, 3, nil)
		require.NoError(t, err)
		cursor := first[len(first)-1].ID

		next, _, err := repo.ListPage(ctx, 3, &cursor)
		require.NoError(t, err)
		require.NotEmpty(t, next)
		for _, c := range next {
			assert.Less(t, c.ID, cursor)
		}
	})

	for _, limit := range []int{1, 2, 3, 7, 10} {
		limit := limit
		t.Run("walk all pages", func(t *testing.T) {
			var (
				seen   []int64
				cursor *int64
			)
			for {
				items, hasMore, err := repo.ListPage(ctx, limit, cursor)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(items), limit)
				for _, c := range items {
					seen = append(seen, c.ID)
				}
				if !hasMore {
					break
				}
				last := items[len(items)-1].ID
				cursor = &last
			}

			require.Len(t, seen, total)
			for i := 1; i < len(seen); i++ {
				assert.Greater(t, seen[i-1], seen[i])
			}
		})
	}
}
