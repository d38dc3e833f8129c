package server

import (
	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments handles GET /api/articles/:slug/comments
// @Summary List comments
// @Description Oldest first
// @Tags comments
// @Produce json
// @Param slug path string true "Article slug"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} object{comments=[]models.CommentResponse}
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	views, err := s.commentService.ListComments(c.UserContext(), s.optionalUserID(c), c.Params("slug"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, keyComments, err)
	}

	out := make([]models.CommentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, models.NewCommentResponse(v.Comment, v.AuthorFollowing))
	}
	return respond(c, fiber.StatusOK, keyComments, out)
}

// CreateComment handles POST /api/articles/:slug/comments
// @Summary Add comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Article slug"
// @Param request body object{comment=object{body=string}} true "Comment"
// @Success 201 {object} object{comment=models.CommentResponse}
// @Failure 400 {object} object{comment=models.FieldErrors}
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := parseEnvelope(c, keyComment, &req); err != nil {
		return nil
	}

	userID := currentUserID(c)
	view, article, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID: userID,
		Slug:   c.Params("slug"),
		Body:   req.Body,
	})
	if err != nil {
		return respondError(c, keyComment, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventCommentCreated, userID, article.AuthorID, map[string]any{
		"slug":       article.Slug,
		"comment_id": view.Comment.ID,
	})
	return respond(c, fiber.StatusCreated, keyComment, models.NewCommentResponse(view.Comment, view.AuthorFollowing))
}

// DeleteComment handles DELETE /api/articles/:slug/comments/:id
// @Summary Delete comment
// @Tags comments
// @Security BearerAuth
// @Param slug path string true "Article slug"
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /articles/{slug}/comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id", "Comment")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	comment, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    userID,
		Slug:      c.Params("slug"),
		CommentID: commentID,
	})
	if err != nil {
		return respondError(c, keyComment, err)
	}

	s.publishEvent(c.UserContext(), notifications.EventCommentDeleted, userID, comment.AuthorID, map[string]any{
		"slug":       c.Params("slug"),
		"comment_id": comment.ID,
	})
	return c.SendStatus(fiber.StatusNoContent)
}
