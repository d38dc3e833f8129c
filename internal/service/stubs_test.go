package service

import (
	"context"
	"errors"
	"testing"

	"conduit/internal/auth"
	"conduit/internal/models"
	"conduit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// userRepoStub is an in-memory repository.UserRepository.
type userRepoStub struct {
	users    map[uint]*models.User
	nextID   uint
	createFn func(context.Context, *models.User) error
	updated  []string
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	s := &userRepoStub{users: map[uint]*models.User{}, nextID: 1}
	for _, u := range users {
		s.users[u.ID] = u
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return s
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) find(match func(*models.User) bool) *models.User {
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	user.ID = s.nextID
	s.nextID++
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *userRepoStub) Update(_ context.Context, user *models.User, columns ...string) error {
	s.updated = columns
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// followRepoStub records follow edges in a set.
type followRepoStub struct {
	edges map[[2]uint]bool
}

func newFollowRepoStub() *followRepoStub {
	return &followRepoStub{edges: map[[2]uint]bool{}}
}

func (s *followRepoStub) IsFollowing(_ context.Context, a, b uint) (bool, error) {
	return s.edges[[2]uint{a, b}], nil
}

func (s *followRepoStub) FollowingAmong(_ context.Context, a uint, ids []uint) (map[uint]bool, error) {
	out := map[uint]bool{}
	for _, id := range ids {
		if s.edges[[2]uint{a, id}] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *followRepoStub) Follow(_ context.Context, a, b uint) error {
	s.edges[[2]uint{a, b}] = true
	return nil
}

func (s *followRepoStub) Unfollow(_ context.Context, a, b uint) error {
	delete(s.edges, [2]uint{a, b})
	return nil
}

// articleRepoStub is a function-field stub for repository.ArticleRepository.
type articleRepoStub struct {
	createFn     func(context.Context, *models.Article) error
	getBySlugFn  func(context.Context, string, uint) (*models.Article, error)
	listFn       func(context.Context, repository.ArticleFilter, uint) ([]*models.Article, int64, error)
	updateFn     func(context.Context, *models.Article, string) error
	deleteFn     func(context.Context, *models.Article) error
	favoriteFn   func(context.Context, uint, *models.Article) error
	unfavoriteFn func(context.Context, uint, *models.Article) error
	tagsFn       func(context.Context) ([]repository.TagCount, error)
}

func (s *articleRepoStub) Create(ctx context.Context, a *models.Article) error {
	return s.createFn(ctx, a)
}
func (s *articleRepoStub) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error) {
	return s.getBySlugFn(ctx, slug, viewerID)
}
func (s *articleRepoStub) List(ctx context.Context, f repository.ArticleFilter, viewerID uint) ([]*models.Article, int64, error) {
	return s.listFn(ctx, f, viewerID)
}
func (s *articleRepoStub) Update(ctx context.Context, a *models.Article, prev string) error {
	return s.updateFn(ctx, a, prev)
}
func (s *articleRepoStub) Delete(ctx context.Context, a *models.Article) error {
	return s.deleteFn(ctx, a)
}
func (s *articleRepoStub) Favorite(ctx context.Context, userID uint, a *models.Article) error {
	return s.favoriteFn(ctx, userID, a)
}
func (s *articleRepoStub) Unfavorite(ctx context.Context, userID uint, a *models.Article) error {
	return s.unfavoriteFn(ctx, userID, a)
}
func (s *articleRepoStub) Tags(ctx context.Context) ([]repository.TagCount, error) {
	return s.tagsFn(ctx)
}

// noopArticleRepo serves a single article owned by user 1 under any slug.
func noopArticleRepo() *articleRepoStub {
	return &articleRepoStub{
		createFn: func(_ context.Context, a *models.Article) error { a.ID = 1; return nil },
		getBySlugFn: func(_ context.Context, slug string, _ uint) (*models.Article, error) {
			return &models.Article{ID: 1, Slug: slug, Title: slug, AuthorID: 1}, nil
		},
		listFn: func(_ context.Context, _ repository.ArticleFilter, _ uint) ([]*models.Article, int64, error) {
			return nil, 0, nil
		},
		updateFn:     func(_ context.Context, _ *models.Article, _ string) error { return nil },
		deleteFn:     func(_ context.Context, _ *models.Article) error { return nil },
		favoriteFn:   func(_ context.Context, _ uint, _ *models.Article) error { return nil },
		unfavoriteFn: func(_ context.Context, _ uint, _ *models.Article) error { return nil },
		tagsFn:       func(_ context.Context) ([]repository.TagCount, error) { return nil, nil },
	}
}

// commentRepoStub is a function-field stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByArticleFn func(context.Context, uint, int, int) ([]*models.Comment, error)
	deleteFn        func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByArticle(ctx context.Context, articleID uint, limit, offset int) ([]*models.Comment, error) {
	return s.listByArticleFn(ctx, articleID, limit, offset)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:  func(_ context.Context, c *models.Comment) error { c.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByArticleFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, error) {
			return []*models.Comment{}, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// tokenStub issues predictable tokens and records revocations.
type tokenStub struct {
	parseFn func(context.Context, string, string) (*auth.Claims, error)
	revoked []*auth.Claims
}

func (s *tokenStub) Issue(userID uint, typ string) (string, error) {
	return typ + "-token", nil
}

func (s *tokenStub) IssuePair(userID uint) (auth.Pair, error) {
	return auth.Pair{Access: "access-token", Refresh: "refresh-token"}, nil
}

func (s *tokenStub) Parse(ctx context.Context, token, typ string) (*auth.Claims, error) {
	if s.parseFn != nil {
		return s.parseFn(ctx, token, typ)
	}
	return nil, auth.ErrInvalidToken
}

func (s *tokenStub) Revoke(_ context.Context, claims *auth.Claims) error {
	s.revoked = append(s.revoked, claims)
	return nil
}
