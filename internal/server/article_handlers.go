package server

import (
	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respondArticles writes {"articles":[...],"articlesCount":total}.
func respondArticles(c *fiber.Ctx, articles []*models.Article, total int64) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		keyArticles:     models.NewArticleResponses(articles),
		"articlesCount": total,
	})
}

// ListArticles handles GET /api/articles
// @Summary List articles
// @Description Most recent first; articlesCount is the total before paging
// @Tags articles
// @Produce json
// @Param tag query string false "Tag substring"
// @Param author query string false "Author username"
// @Param favorited query string false "Favorited by username"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} object{articles=[]models.ArticleResponse,articlesCount=int}
// @Router /articles [get]
func (s *Server) ListArticles(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	articles, total, err := s.articleService.List(c.UserContext(), service.ListArticlesInput{
		ViewerID:  s.optionalUserID(c),
		Tag:       c.Query("tag"),
		Author:    c.Query("author"),
		Favorited: c.Query("favorited"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return respondError(c, keyArticles, err)
	}
	return respondArticles(c, articles, total)
}

// FeedArticles handles GET /api/articles/feed
// @Summary Feed
// @Description Articles by authors the caller follows
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} object{articles=[]models.ArticleResponse,articlesCount=int}
// @Failure 401 {object} models.ErrorResponse
// @Router /articles/feed [get]
func (s *Server) FeedArticles(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	articles, total, err := s.articleService.Feed(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, keyArticles, err)
	}
	return respondArticles(c, articles, total)
}

// GetArticle handles GET /api/articles/:slug
// @Summary Get article
// @Tags articles
// @Produce json
// @Param slug path string true "Slug"
// @Success 200 {object} object{article=models.ArticleResponse}
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug} [get]
func (s *Server) GetArticle(c *fiber.Ctx) error {
	article, err := s.articleService.Get(c.UserContext(), s.optionalUserID(c), c.Params("slug"))
	if err != nil {
		return respondError(c, keyArticle, err)
	}
	return respond(c, fiber.StatusOK, keyArticle, models.NewArticleResponse(article))
}

// CreateArticle handles POST /api/articles
// @Summary Create article
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{article=object{title=string,description=string,body=string,tagList=[]string}} true "Article"
// @Success 201 {object} object{article=models.ArticleResponse}
// @Failure 400 {object} object{article=models.FieldErrors}
// @Failure 401 {object} models.ErrorResponse
// @Router /articles [post]
func (s *Server) CreateArticle(c *fiber.Ctx) error {
	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Body        string   `json:"body"`
		TagList     []string `json:"tagList"`
	}
	if err := parseEnvelope(c, keyArticle, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	article, err := s.articleService.Create(c.UserContext(), service.CreateArticleInput{
		AuthorID:    userID,
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		TagList:     req.TagList,
	})
	if err != nil {
		return respondError(c, keyArticle, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventArticleCreated, userID, 0, map[string]any{
		"slug":  article.Slug,
		"title": article.Title,
	})
	return respond(c, fiber.StatusCreated, keyArticle, models.NewArticleResponse(article))
}

// UpdateArticle handles PUT /api/articles/:slug
// @Summary Update article
// @Description Partial update; a new title re-derives the slug
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Slug"
// @Param request body object{article=object{title=string,description=string,body=string,tagList=[]string}} true "Changes"
// @Success 200 {object} object{article=models.ArticleResponse}
// @Failure 400 {object} object{article=models.FieldErrors}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug} [put]
func (s *Server) UpdateArticle(c *fiber.Ctx) error {
	var req struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Body        *string   `json:"body"`
		TagList     *[]string `json:"tagList"`
	}
	if err := parseEnvelope(c, keyArticle, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	article, err := s.articleService.Update(c.UserContext(), service.UpdateArticleInput{
		UserID:      userID,
		Slug:        c.Params("slug"),
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		TagList:     req.TagList,
	})
	if err != nil {
		return respondError(c, keyArticle, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventArticleUpdated, userID, article.AuthorID, map[string]any{
		"slug":          article.Slug,
		"previous_slug": c.Params("slug"),
	})
	return respond(c, fiber.StatusOK, keyArticle, models.NewArticleResponse(article))
}

// DeleteArticle handles DELETE /api/articles/:slug
// @Summary Delete article
// @Tags articles
// @Security BearerAuth
// @Param slug path string true "Slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug} [delete]
func (s *Server) DeleteArticle(c *fiber.Ctx) error {
	userID := currentUserID(c)
	article, err := s.articleService.Delete(c.UserContext(), userID, c.Params("slug"))
	if err != nil {
		return respondError(c, keyArticle, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventArticleDeleted, userID, article.AuthorID, map[string]any{
		"slug": article.Slug,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// FavoriteArticle handles POST /api/articles/:slug/favorite
// @Summary Favorite article
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Slug"
// @Success 200 {object} object{article=models.ArticleResponse}
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/favorite [post]
func (s *Server) FavoriteArticle(c *fiber.Ctx) error {
	userID := currentUserID(c)
	article, err := s.articleService.Favorite(c.UserContext(), userID, c.Params("slug"))
	if err != nil {
		return respondError(c, keyArticle, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventArticleFavorited, userID, article.AuthorID, map[string]any{
		"slug":            article.Slug,
		"favorites_count": article.FavoritesCount,
	})
	return respond(c, fiber.StatusOK, keyArticle, models.NewArticleResponse(article))
}

// UnfavoriteArticle handles DELETE /api/articles/:slug/favorite
// @Summary Unfavorite article
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Slug"
// @Success 200 {object} object{article=models.ArticleResponse}
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/favorite [delete]
func (s *Server) UnfavoriteArticle(c *fiber.Ctx) error {
	userID := currentUserID(c)
	article, err := s.articleService.Unfavorite(c.UserContext(), userID, c.Params("slug"))
	if err != nil {
		return respondError(c, keyArticle, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventArticleUnfavorite, userID, article.AuthorID, map[string]any{
		"slug":            article.Slug,
		"favorites_count": article.FavoritesCount,
	})
	return respond(c, fiber.StatusOK, keyArticle, models.NewArticleResponse(article))
}

// GetTags handles GET /api/tags
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {object} object{tags=[]string}
// @Router /tags [get]
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.articleService.Tags(c.UserContext())
	if err != nil {
		return respondError(c, keyErrors, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}
