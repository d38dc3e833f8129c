package repository

import (
	"context"
	"fmt"
	"testing"

	"conduit/internal/cache"
	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleRepository_CreateDuplicateSlug(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "author")

	first := &models.Article{Slug: "hello-world", Title: "Hello World", AuthorID: author.ID}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, []string{}, first.TagList)

	err := repo.Create(ctx, &models.Article{Slug: "hello-world", Title: "Hello World", AuthorID: author.ID})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, []string{"article with this slug already exists."}, appErr.Fields["slug"])
}

func TestArticleRepository_GetBySlug(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	reader := testutil.CreateUser(t, db, "reader")
	article := testutil.CreateArticle(t, db, author, "how-to-train-your-dragon", "dragons", "training")

	require.NoError(t, repo.Favorite(ctx, reader.ID, article))
	require.NoError(t, NewFollowRepository(db).Follow(ctx, reader.ID, author.ID))

	t.Run("viewer flags", func(t *testing.T) {
		got, err := repo.GetBySlug(ctx, article.Slug, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, author.Username, got.Author.Username)
		assert.Equal(t, []string{"dragons", "training"}, got.TagList)
		assert.Equal(t, int64(1), got.FavoritesCount)
		assert.True(t, got.Favorited)
		assert.True(t, got.AuthorFollowing)
	})

	t.Run("anonymous", func(t *testing.T) {
		got, err := repo.GetBySlug(ctx, article.Slug, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.FavoritesCount)
		assert.False(t, got.Favorited)
		assert.False(t, got.AuthorFollowing)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := repo.GetBySlug(ctx, "missing", reader.ID)
		assertAppError(t, err, models.CodeNotFound)
	})
}

func TestArticleRepository_FavoriteIsIdempotent(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	fan := testutil.CreateUser(t, db, "fan")
	article := testutil.CreateArticle(t, db, author, "twice")

	require.NoError(t, repo.Favorite(ctx, fan.ID, article))
	require.NoError(t, repo.Favorite(ctx, fan.ID, article))

	got, err := repo.GetBySlug(ctx, "twice", fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.FavoritesCount)
	assert.True(t, got.Favorited)

	require.NoError(t, repo.Unfavorite(ctx, fan.ID, article))
	require.NoError(t, repo.Unfavorite(ctx, fan.ID, article))

	got, err = repo.GetBySlug(ctx, "twice", fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.FavoritesCount)
	assert.False(t, got.Favorited)
}

func TestArticleRepository_List(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	jake := testutil.CreateUser(t, db, "jake")
	jane := testutil.CreateUser(t, db, "jane")
	reader := testutil.CreateUser(t, db, "reader")

	a1 := testutil.CreateArticle(t, db, jake, "first", "go", "web")
	testutil.CreateArticle(t, db, jake, "second", "golang")
	a3 := testutil.CreateArticle(t, db, jane, "third", "rust")

	require.NoError(t, repo.Favorite(ctx, reader.ID, a1))
	require.NoError(t, repo.Favorite(ctx, reader.ID, a3))
	require.NoError(t, follows.Follow(ctx, reader.ID, jane.ID))

	slugs := func(articles []*models.Article) []string {
		out := make([]string, 0, len(articles))
		for _, a := range articles {
			out = append(out, a.Slug)
		}
		return out
	}

	tests := []struct {
		name      string
		filter    ArticleFilter
		wantSlugs []string
		wantTotal int64
	}{
		{"all newest first", ArticleFilter{}, []string{"third", "second", "first"}, 3},
		{"count ignores limit", ArticleFilter{Limit: 1}, []string{"third"}, 3},
		{"offset", ArticleFilter{Limit: 1, Offset: 1}, []string{"second"}, 3},
		{"tag substring", ArticleFilter{Tag: "go"}, []string{"second", "first"}, 2},
		{"tag case-insensitive", ArticleFilter{Tag: "RUST"}, []string{"third"}, 1},
		{"author", ArticleFilter{Author: jake.Username}, []string{"second", "first"}, 2},
		{"unknown author", ArticleFilter{Author: "ghost"}, []string{}, 0},
		{"favorited", ArticleFilter{Favorited: reader.Username}, []string{"third", "first"}, 2},
		{"unknown favoriter", ArticleFilter{Favorited: "ghost"}, []string{}, 0},
		{"feed", ArticleFilter{FollowedBy: reader.ID}, []string{"third"}, 1},
		{"feed without follows", ArticleFilter{FollowedBy: jake.ID}, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles, total, err := repo.List(ctx, tt.filter, reader.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSlugs, slugs(articles))
			assert.Equal(t, tt.wantTotal, total)
		})
	}

	t.Run("computed columns per viewer", func(t *testing.T) {
		articles, _, err := repo.List(ctx, ArticleFilter{}, reader.ID)
		require.NoError(t, err)
		require.Len(t, articles, 3)
		assert.True(t, articles[0].Favorited)
		assert.True(t, articles[0].AuthorFollowing)
		assert.Equal(t, jane.Username, articles[0].Author.Username)
		assert.False(t, articles[1].Favorited)
		assert.False(t, articles[1].AuthorFollowing)
	})
}

func TestArticleRepository_ListTagMatchesLiterally(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	testutil.CreateArticle(t, db, author, "plain", "go")
	testutil.CreateArticle(t, db, author, "other", "rust")
	testutil.CreateArticle(t, db, author, "untagged")
	testutil.CreateArticle(t, db, author, "special", "c&c", "100%", "snake_case")

	tests := []struct {
		name      string
		tag       string
		wantSlugs []string
	}{
		{"underscore", "_", []string{"special"}},
		{"percent", "%", []string{"special"}},
		{"underscore inside word", "e_c", []string{"special"}},
		{"percent is not a wildcard", "1%0", []string{}},
		{"double quote", `"`, []string{}},
		{"json brackets", "[", []string{}},
		{"ampersand", "c&c", []string{"special"}},
		{"backslash", `\`, []string{}},
		{"plain substring", "o", []string{"plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles, total, err := repo.List(ctx, ArticleFilter{Tag: tt.tag}, 0)
			require.NoError(t, err)
			got := make([]string, 0, len(articles))
			for _, a := range articles {
				got = append(got, a.Slug)
			}
			assert.Equal(t, tt.wantSlugs, got)
			assert.Equal(t, int64(len(tt.wantSlugs)), total)
		})
	}
}

func TestArticleRepository_CachedReadHasCurrentAuthor(t *testing.T) {
	mr, _ := testutil.StartRedis(t)
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	testutil.CreateArticle(t, db, author, "cached")

	first, err := repo.GetBySlug(ctx, "cached", 0)
	require.NoError(t, err)
	assert.Equal(t, author.Username, first.Author.Username)
	require.True(t, mr.Exists(cache.ArticleKey("cached")))

	require.NoError(t, db.Model(author).Updates(map[string]any{"username": "renamed", "bio": "fresh"}).Error)

	second, err := repo.GetBySlug(ctx, "cached", 0)
	require.NoError(t, err)
	assert.Equal(t, "renamed", second.Author.Username)
	assert.Equal(t, "fresh", second.Author.Bio)
}

func TestArticleRepository_UpdateAndCache(t *testing.T) {
	mr, _ := testutil.StartRedis(t)
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	testutil.CreateArticle(t, db, author, "old-title", "a")

	loaded, err := repo.GetBySlug(ctx, "old-title", 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ArticleKey("old-title")))

	loaded.Title = "New Title"
	loaded.Slug = "new-title"
	loaded.TagList = []string{"b"}
	require.NoError(t, repo.Update(ctx, loaded, "old-title"))
	assert.False(t, mr.Exists(cache.ArticleKey("old-title")))

	_, err = repo.GetBySlug(ctx, "old-title", 0)
	assertAppError(t, err, models.CodeNotFound)

	got, err := repo.GetBySlug(ctx, "new-title", 0)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, []string{"b"}, got.TagList)
}

func TestArticleRepository_DeleteRemovesDependents(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	article := testutil.CreateArticle(t, db, author, "doomed")
	require.NoError(t, repo.Favorite(ctx, author.ID, article))
	require.NoError(t, comments.Create(ctx, &models.Comment{Body: "bye", AuthorID: author.ID, ArticleID: article.ID}))

	require.NoError(t, repo.Delete(ctx, article))

	var n int64
	db.Model(&models.Comment{}).Where("article_id = ?", article.ID).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Favorite{}).Where("article_id = ?", article.ID).Count(&n)
	assert.Zero(t, n)

	_, err := repo.GetBySlug(ctx, "doomed", 0)
	assertAppError(t, err, models.CodeNotFound)
}

func TestArticleRepository_Tags(t *testing.T) {
	mr, _ := testutil.StartRedis(t)
	db := testutil.OpenSQLite(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	for i, tags := range [][]string{{"go", "web"}, {"go"}, {"db"}} {
		testutil.CreateArticle(t, db, author, fmt.Sprintf("a-%d", i), tags...)
	}

	tags, err := repo.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TagCount{{"go", 2}, {"db", 1}, {"web", 1}}, tags)
	assert.True(t, mr.Exists(cache.TagsKey))

	require.NoError(t, repo.Create(ctx, &models.Article{Slug: "new", Title: "new", AuthorID: author.ID, TagList: []string{"zig"}}))
	assert.False(t, mr.Exists(cache.TagsKey))
}
