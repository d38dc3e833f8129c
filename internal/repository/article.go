package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"conduit/internal/cache"
	"conduit/internal/models"
	"conduit/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleFilter narrows an article listing. Zero values mean "no filter".
type ArticleFilter struct {
	Tag        string
	Author     string
	Favorited  string
	FollowedBy uint
	Limit      int
	Offset     int
}

// TagCount is a tag and the number of articles carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ArticleRepository defines the interface for article data operations.
// viewerID (0 for anonymous) drives the favorited and author-following columns.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error)
	List(ctx context.Context, filter ArticleFilter, viewerID uint) ([]*models.Article, int64, error)
	Update(ctx context.Context, article *models.Article, previousSlug string) error
	Delete(ctx context.Context, article *models.Article) error
	Favorite(ctx context.Context, userID uint, article *models.Article) error
	Unfavorite(ctx context.Context, userID uint, article *models.Article) error
	Tags(ctx context.Context) ([]TagCount, error)
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

// applyArticleDetails selects the computed columns in the same query.
func applyArticleDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "articles.*, " +
		"(SELECT COUNT(*) FROM article_favorites WHERE article_favorites.article_id = articles.id) AS favorites_count"

	if viewerID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM article_favorites WHERE article_favorites.article_id = articles.id AND article_favorites.user_id = ?) AS favorited"+
			", EXISTS(SELECT 1 FROM following_users WHERE following_users.followee_id = articles.author_id AND following_users.follower_id = ?) AS author_following",
			viewerID, viewerID)
	}
	return db.Select(selectQuery + ", false AS favorited, false AS author_following")
}

// likeEscaper makes user input match literally inside a LIKE pattern with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// tagMatchQuery matches articles having at least one tag that contains the
// pattern. Tags are compared as decoded JSON array elements, both sides folded
// by the database so the two agree on case.
func tagMatchQuery(dialect string) string {
	if dialect == "postgres" {
		return "EXISTS (SELECT 1 FROM json_array_elements_text(articles.tag_list::json) AS t(tag) " +
			`WHERE LOWER(t.tag) LIKE LOWER(?) ESCAPE '\')`
	}
	return "EXISTS (SELECT 1 FROM json_each(articles.tag_list) " +
		`WHERE LOWER(json_each.value) LIKE LOWER(?) ESCAPE '\')`
}

func applyArticleFilter(db *gorm.DB, f ArticleFilter) *gorm.DB {
	if f.Tag != "" {
		db = db.Where(tagMatchQuery(db.Dialector.Name()), "%"+likeEscaper.Replace(f.Tag)+"%")
	}
	if f.Author != "" {
		db = db.Where("articles.author_id IN (SELECT id FROM users WHERE username = ?)", f.Author)
	}
	if f.Favorited != "" {
		db = db.Where("articles.id IN (SELECT article_favorites.article_id FROM article_favorites "+
			"JOIN users ON users.id = article_favorites.user_id WHERE users.username = ?)", f.Favorited)
	}
	if f.FollowedBy != 0 {
		db = db.Where("articles.author_id IN (SELECT followee_id FROM following_users WHERE follower_id = ?)", f.FollowedBy)
	}
	return db
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	if article.TagList == nil {
		article.TagList = []string{}
	}
	if err := r.db.WithContext(ctx).Omit("Author").Create(article).Error; err != nil {
		return articleWriteError(err)
	}
	cache.InvalidateTags(ctx)
	return nil
}

// GetBySlug loads one article with its author. Anonymous reads cache the
// article row only; the author is always read fresh so profile edits show up.
func (r *articleRepository) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Article, error) {
	var article models.Article
	fetch := func() error {
		err := applyArticleDetails(r.db.WithContext(ctx).Model(&models.Article{}), viewerID).
			Where("articles.slug = ?", slug).
			Take(&article).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Article", slug)
		}
		if err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}

	var err error
	if viewerID == 0 {
		err = cache.Aside(ctx, cache.ArticleKey(slug), &article, cache.ArticleTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	article.Author = models.User{}
	if err := r.db.WithContext(ctx).Take(&article.Author, article.AuthorID).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &article, nil
}

// List returns one page of matching articles, newest first, and the total
// number of matches ignoring limit and offset.
func (r *articleRepository) List(ctx context.Context, filter ArticleFilter, viewerID uint) ([]*models.Article, int64, error) {
	defer observability.TrackQuery("list", "articles")()

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	base := applyArticleFilter(r.db.WithContext(ctx).Model(&models.Article{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	articles := make([]*models.Article, 0, limit)
	if total == 0 {
		return articles, 0, nil
	}
	err := applyArticleDetails(base.Session(&gorm.Session{}), viewerID).
		Preload("Author").
		Order("articles.created_at DESC").
		Order("articles.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return articles, total, nil
}

// Update persists the editable columns. previousSlug is the slug the article
// was loaded under, so its cache entry is dropped even when the slug changed.
func (r *articleRepository) Update(ctx context.Context, article *models.Article, previousSlug string) error {
	if article.TagList == nil {
		article.TagList = []string{}
	}
	err := r.db.WithContext(ctx).
		Model(article).
		Select("slug", "title", "description", "body", "tag_list", "updated_at").
		Updates(article).Error
	if err != nil {
		return articleWriteError(err)
	}
	cache.InvalidateArticle(ctx, previousSlug, article.Slug)
	cache.InvalidateTags(ctx)
	return nil
}

// Delete removes the article together with its comments and favorites.
func (r *articleRepository) Delete(ctx context.Context, article *models.Article) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", article.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Article{}, article.ID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateArticle(ctx, article.Slug)
	cache.InvalidateTags(ctx)
	return nil
}

// Favorite is idempotent: the unique (user_id, article_id) index absorbs repeats.
func (r *articleRepository) Favorite(ctx context.Context, userID uint, article *models.Article) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{UserID: userID, ArticleID: article.ID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateArticle(ctx, article.Slug)
	return nil
}

func (r *articleRepository) Unfavorite(ctx context.Context, userID uint, article *models.Article) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userID, article.ID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateArticle(ctx, article.Slug)
	return nil
}

// Tags returns every distinct tag, most used first.
func (r *articleRepository) Tags(ctx context.Context) ([]TagCount, error) {
	var tags []TagCount
	err := cache.Aside(ctx, cache.TagsKey, &tags, cache.TagsTTL, func() error {
		var rows []string
		if err := r.db.WithContext(ctx).Model(&models.Article{}).Pluck("tag_list", &rows).Error; err != nil {
			return models.NewInternalError(err)
		}
		tags = countTags(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func countTags(rows []string) []TagCount {
	counts := map[string]int{}
	for _, raw := range rows {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			continue
		}
		seen := map[string]bool{}
		for _, tag := range list {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			counts[tag]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func articleWriteError(err error) error {
	if isUniqueConstraintError(err) {
		return models.NewFieldError("slug", "article with this slug already exists.")
	}
	return models.NewInternalError(err)
}
