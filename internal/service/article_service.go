package service

import (
	"context"
	"strings"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
	"conduit/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const maxTitleLength = 255

// WritePolicy reports whether userID may modify content owned by someone else.
type WritePolicy func(userID uint) bool

type ArticleService struct {
	articleRepo repository.ArticleRepository
	openWrites  WritePolicy
}

type ListArticlesInput struct {
	ViewerID  uint
	Tag       string
	Author    string
	Favorited string
	Limit     int
	Offset    int
}

type CreateArticleInput struct {
	AuthorID    uint
	Title       string
	Description string
	Body        string
	TagList     []string
}

// UpdateArticleInput carries a partial update; nil fields are left unchanged.
type UpdateArticleInput struct {
	UserID      uint
	Slug        string
	Title       *string
	Description *string
	Body        *string
	TagList     *[]string
}

func NewArticleService(articleRepo repository.ArticleRepository, openWrites WritePolicy) *ArticleService {
	return &ArticleService{articleRepo: articleRepo, openWrites: openWrites}
}

func (s *ArticleService) canModify(userID, ownerID uint) bool {
	if userID == ownerID {
		return true
	}
	return s.openWrites != nil && s.openWrites(userID)
}

// List returns a page of articles and the total number of matches.
func (s *ArticleService) List(ctx context.Context, in ListArticlesInput) (articles []*models.Article, total int64, err error) {
	ctx, span := observability.StartSpan(ctx, "article_service", "list",
		attribute.String("filter.tag", in.Tag),
		attribute.String("filter.author", in.Author),
		attribute.String("filter.favorited", in.Favorited),
	)
	defer func() { observability.EndSpan(span, err) }()

	return s.articleRepo.List(ctx, repository.ArticleFilter{
		Tag:       strings.TrimSpace(in.Tag),
		Author:    strings.TrimSpace(in.Author),
		Favorited: strings.TrimSpace(in.Favorited),
		Limit:     in.Limit,
		Offset:    in.Offset,
	}, in.ViewerID)
}

// Feed lists articles written by authors viewerID follows.
func (s *ArticleService) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Article, int64, error) {
	if viewerID == 0 {
		return nil, 0, models.NewAuthenticationError("Authentication required")
	}
	return s.articleRepo.List(ctx, repository.ArticleFilter{
		FollowedBy: viewerID,
		Limit:      limit,
		Offset:     offset,
	}, viewerID)
}

func (s *ArticleService) Get(ctx context.Context, viewerID uint, slug string) (*models.Article, error) {
	return s.articleRepo.GetBySlug(ctx, slug, viewerID)
}

// Create publishes an article; the slug is derived from the title.
func (s *ArticleService) Create(ctx context.Context, in CreateArticleInput) (created *models.Article, err error) {
	ctx, span := observability.StartSpan(ctx, "article_service", "create")
	defer func() { observability.EndSpan(span, err) }()

	verr := models.NewValidationError("Invalid article")
	title := strings.TrimSpace(in.Title)
	slug := validateTitle(verr, title)
	if verr.HasFields() {
		return nil, verr
	}

	article := &models.Article{
		Slug:        slug,
		Title:       title,
		Description: in.Description,
		Body:        in.Body,
		TagList:     normalizeTags(in.TagList),
		AuthorID:    in.AuthorID,
	}
	if err = s.articleRepo.Create(ctx, article); err != nil {
		return nil, err
	}
	observability.ArticlesCreated.Inc()
	return s.articleRepo.GetBySlug(ctx, article.Slug, in.AuthorID)
}

// Update edits an article in place. A new title re-derives the slug.
func (s *ArticleService) Update(ctx context.Context, in UpdateArticleInput) (*models.Article, error) {
	article, err := s.articleRepo.GetBySlug(ctx, in.Slug, in.UserID)
	if err != nil {
		return nil, err
	}
	if !s.canModify(in.UserID, article.AuthorID) {
		return nil, models.NewUnauthorizedError("You can only update your own articles")
	}

	verr := models.NewValidationError("Invalid article")
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if slug := validateTitle(verr, title); slug != "" {
			article.Title = title
			article.Slug = slug
		}
	}
	if verr.HasFields() {
		return nil, verr
	}
	if in.Description != nil {
		article.Description = *in.Description
	}
	if in.Body != nil {
		article.Body = *in.Body
	}
	if in.TagList != nil {
		article.TagList = normalizeTags(*in.TagList)
	}

	if err := s.articleRepo.Update(ctx, article, in.Slug); err != nil {
		return nil, err
	}
	return s.articleRepo.GetBySlug(ctx, article.Slug, in.UserID)
}

// Delete removes an article with its comments and favorites and returns what was removed.
func (s *ArticleService) Delete(ctx context.Context, userID uint, slug string) (*models.Article, error) {
	article, err := s.articleRepo.GetBySlug(ctx, slug, userID)
	if err != nil {
		return nil, err
	}
	if !s.canModify(userID, article.AuthorID) {
		return nil, models.NewUnauthorizedError("You can only delete your own articles")
	}
	if err := s.articleRepo.Delete(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Favorite marks the article for userID and returns it with fresh counts.
func (s *ArticleService) Favorite(ctx context.Context, userID uint, slug string) (*models.Article, error) {
	return s.toggleFavorite(ctx, userID, slug, true)
}

// Unfavorite clears the mark and returns the article with fresh counts.
func (s *ArticleService) Unfavorite(ctx context.Context, userID uint, slug string) (*models.Article, error) {
	return s.toggleFavorite(ctx, userID, slug, false)
}

func (s *ArticleService) toggleFavorite(ctx context.Context, userID uint, slug string, on bool) (*models.Article, error) {
	article, err := s.articleRepo.GetBySlug(ctx, slug, userID)
	if err != nil {
		return nil, err
	}

	action := "unfavorite"
	if on {
		action = "favorite"
		err = s.articleRepo.Favorite(ctx, userID, article)
	} else {
		err = s.articleRepo.Unfavorite(ctx, userID, article)
	}
	if err != nil {
		return nil, err
	}
	observability.FavoriteActions.WithLabelValues(action).Inc()
	return s.articleRepo.GetBySlug(ctx, slug, userID)
}

// Tags lists every tag in use, most popular first.
func (s *ArticleService) Tags(ctx context.Context) ([]string, error) {
	counts, err := s.articleRepo.Tags(ctx)
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(counts))
	for _, tc := range counts {
		tags = append(tags, tc.Tag)
	}
	return tags, nil
}

// validateTitle records title problems on verr and returns the derived slug.
func validateTitle(verr *models.AppError, title string) string {
	if title == "" {
		verr.Add("title", blankField)
		return ""
	}
	if len([]rune(title)) > maxTitleLength {
		verr.Add("title", "Ensure this field has no more than 255 characters.")
		return ""
	}
	slug := validation.Slugify(title)
	if slug == "" {
		verr.Add("title", "Title must contain at least one letter or digit.")
	}
	return slug
}

// normalizeTags trims tags and drops blanks and repeats, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
