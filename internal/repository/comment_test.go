package repository

import (
	"context"
	"regexp"
	"testing"

	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	comment := &models.Comment{Body: "Nice article!", ArticleID: 1, AuthorID: 1}
	require.NoError(t, repo.Create(context.Background(), comment))
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_SQLite(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	article := testutil.CreateArticle(t, db, author, "commented")
	other := testutil.CreateArticle(t, db, author, "quiet")

	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &models.Comment{Body: body, AuthorID: author.ID, ArticleID: article.ID}))
	}

	t.Run("insertion order with author", func(t *testing.T) {
		comments, err := repo.ListByArticle(ctx, article.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, comments, 3)
		assert.Equal(t, "one", comments[0].Body)
		assert.Equal(t, "three", comments[2].Body)
		assert.Equal(t, author.Username, comments[0].Author.Username)
	})

	t.Run("pagination", func(t *testing.T) {
		comments, err := repo.ListByArticle(ctx, article.ID, 1, 1)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "two", comments[0].Body)
	})

	t.Run("other article is empty not nil", func(t *testing.T) {
		comments, err := repo.ListByArticle(ctx, other.ID, 0, 0)
		require.NoError(t, err)
		assert.NotNil(t, comments)
		assert.Empty(t, comments)
	})

	t.Run("delete then lookup is not found", func(t *testing.T) {
		comments, err := repo.ListByArticle(ctx, article.ID, 1, 0)
		require.NoError(t, err)
		id := comments[0].ID

		require.NoError(t, repo.Delete(ctx, id))
		_, err = repo.GetByID(ctx, id)
		assertAppError(t, err, models.CodeNotFound)
	})
}
