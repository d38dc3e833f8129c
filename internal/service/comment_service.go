package service

import (
	"context"
	"strings"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	articleRepo repository.ArticleRepository
	followRepo  repository.FollowRepository
	openWrites  WritePolicy
}

type CreateCommentInput struct {
	UserID uint
	Slug   string
	Body   string
}

type DeleteCommentInput struct {
	UserID    uint
	Slug      string
	CommentID uint
}

// CommentView is a comment with the viewer's follow state for its author.
type CommentView struct {
	Comment         *models.Comment
	AuthorFollowing bool
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	articleRepo repository.ArticleRepository,
	followRepo repository.FollowRepository,
	openWrites WritePolicy,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		articleRepo: articleRepo,
		followRepo:  followRepo,
		openWrites:  openWrites,
	}
}

// ListComments returns an article's comments in insertion order.
func (s *CommentService) ListComments(ctx context.Context, viewerID uint, slug string, limit, offset int) ([]CommentView, error) {
	article, err := s.articleRepo.GetBySlug(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByArticle(ctx, article.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	following, err := s.followRepo.FollowingAmong(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, CommentView{Comment: c, AuthorFollowing: following[c.AuthorID]})
	}
	return views, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*CommentView, *models.Article, error) {
	article, err := s.articleRepo.GetBySlug(ctx, in.Slug, 0)
	if err != nil {
		return nil, nil, err
	}

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, nil, models.NewFieldError("body", blankField)
	}
	if len(body) > maxCommentLen {
		return nil, nil, models.NewFieldError("body", "Ensure this field has no more than 10000 characters.")
	}

	comment := &models.Comment{
		Body:      body,
		AuthorID:  in.UserID,
		ArticleID: article.ID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, nil, err
	}
	observability.CommentsCreated.Inc()

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, nil, err
	}
	// Commenters cannot follow themselves.
	return &CommentView{Comment: created, AuthorFollowing: false}, article, nil
}

// DeleteComment removes a comment that belongs to the article at slug.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	article, err := s.articleRepo.GetBySlug(ctx, in.Slug, 0)
	if err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.ArticleID != article.ID {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}

	if comment.AuthorID != in.UserID && (s.openWrites == nil || !s.openWrites(in.UserID)) {
		return nil, models.NewUnauthorizedError("You can only delete your own comments")
	}

	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}
