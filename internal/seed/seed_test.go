package seed

import (
	"context"
	"testing"

	"conduit/internal/models"
	"conduit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const sampleFixtures = `
users:
  - username: jake
    email: jake@jake.jake
    password: jakejake
    bio: I work at statefarm
  - username: jane
articles:
  - author: jake
    title: How to train your dragon
    description: Ever wonder how?
    body: You have to believe
    tags: [dragons, training]
  - author: jane
    title: Second Post
comments:
  - {author: jane, article: How to train your dragon, body: Great read}
follows:
  - {follower: jane, followee: jake}
  - {follower: jane, followee: jake}
favorites:
  - {user: jane, article: How to train your dragon}
`

func count(t *testing.T, s *Seeder, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func TestParseFixtures(t *testing.T) {
	fx, err := ParseFixtures([]byte(sampleFixtures))
	require.NoError(t, err)
	assert.Len(t, fx.Users, 2)
	assert.Equal(t, []string{"dragons", "training"}, fx.Articles[0].Tags)
	assert.Equal(t, "jake", fx.Follows[0].Followee)
}

func TestParseFixtures_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Malformed YAML", "users: ["},
		{"Unknown author", "users: [{username: a}]\narticles: [{author: b, title: T}]"},
		{"Duplicate user", "users: [{username: a}, {username: a}]"},
		{"Unknown article", "users: [{username: a}]\ncomments: [{author: a, article: Nope, body: x}]"},
		{"Self follow", "users: [{username: a}]\nfollows: [{follower: a, followee: a}]"},
		{"Missing title", "users: [{username: a}]\narticles: [{author: a}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixtures([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestApplyFixtures(t *testing.T) {
	db := testutil.OpenSQLite(t)
	s := NewSeeder(db, Options{SkipBcrypt: true, RandSeed: 1})

	fx, err := ParseFixtures([]byte(sampleFixtures))
	require.NoError(t, err)

	sum, err := s.ApplyFixtures(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 2, Articles: 2, Comments: 1, Follows: 1, Favorites: 1}, sum)

	var jake models.User
	require.NoError(t, db.Where("username = ?", "jake").First(&jake).Error)
	assert.Equal(t, "jake@jake.jake", jake.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(jake.Password), []byte("jakejake")))

	var jane models.User
	require.NoError(t, db.Where("username = ?", "jane").First(&jane).Error)
	assert.Equal(t, "jane@example.com", jane.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(jane.Password), []byte(DefaultPassword)))

	var article models.Article
	require.NoError(t, db.Where("slug = ?", "how-to-train-your-dragon").First(&article).Error)
	assert.Equal(t, jake.ID, article.AuthorID)
	assert.Equal(t, []string{"dragons", "training"}, article.TagList)

	// Re-applying collides on the unique indexes and rolls back entirely.
	_, err = s.ApplyFixtures(context.Background(), fx)
	assert.Error(t, err)
	assert.Equal(t, int64(2), count(t, s, &models.User{}))
}

func TestSeedRandom(t *testing.T) {
	db := testutil.OpenSQLite(t)
	s := NewSeeder(db, Options{
		NumUsers:           5,
		NumArticles:        8,
		CommentsPerArticle: 2,
		FollowsPerUser:     3,
		FavoritesPerUser:   3,
		SkipBcrypt:         true,
		RandSeed:           42,
	})

	sum, err := s.SeedRandom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 8, sum.Articles)
	assert.Equal(t, 16, sum.Comments)

	assert.Equal(t, int64(5), count(t, s, &models.User{}))
	assert.Equal(t, int64(8), count(t, s, &models.Article{}))
	assert.Equal(t, int64(16), count(t, s, &models.Comment{}))
	assert.Equal(t, int64(sum.Follows), count(t, s, &models.Follow{}))
	assert.Equal(t, int64(sum.Favorites), count(t, s, &models.Favorite{}))

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = followee_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	require.NoError(t, s.ClearAll(context.Background()))
	for _, m := range []any{&models.User{}, &models.Article{}, &models.Comment{}, &models.Follow{}, &models.Favorite{}} {
		assert.Zero(t, count(t, s, m))
	}
}

func TestSeedRandom_DryRun(t *testing.T) {
	db := testutil.OpenSQLite(t)
	s := NewSeeder(db, Options{NumUsers: 3, NumArticles: 2, CommentsPerArticle: 1, SkipBcrypt: true, DryRun: true, RandSeed: 7})

	sum, err := s.SeedRandom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Users)
	assert.Equal(t, 2, sum.Articles)
	assert.Zero(t, count(t, s, &models.User{}))
	assert.Zero(t, count(t, s, &models.Article{}))
}

func TestFactory_UniqueValues(t *testing.T) {
	f := NewFactory(3)
	author := &models.User{ID: 1}

	usernames := map[string]bool{}
	slugs := map[string]bool{}
	for i := 0; i < 50; i++ {
		u := f.BuildUser()
		assert.False(t, usernames[u.Username], u.Username)
		usernames[u.Username] = true

		a := f.BuildArticle(author, func(a *models.Article) { a.Title = "Same Title" })
		assert.False(t, slugs[a.Slug], a.Slug)
		slugs[a.Slug] = true
		assert.LessOrEqual(t, len(a.TagList), 3)
	}
	assert.True(t, slugs["same-title"])
	assert.True(t, slugs["same-title-2"])
}

func TestLoadFixtures_DemoFile(t *testing.T) {
	fx, err := LoadFixtures("../../fixtures/demo.yml")
	require.NoError(t, err)

	db := testutil.OpenSQLite(t)
	sum, err := NewSeeder(db, Options{SkipBcrypt: true, RandSeed: 1}).ApplyFixtures(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 3, Articles: 3, Comments: 3, Follows: 3, Favorites: 3}, sum)
}

func TestLoadFixtures_MissingFile(t *testing.T) {
	_, err := LoadFixtures("does-not-exist.yml")
	assert.Error(t, err)
}
