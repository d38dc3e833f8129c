package models

import "time"

// UserResponse is the authenticated user's own view, including the token.
type UserResponse struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Bio      string  `json:"bio"`
	Image    *string `json:"image"`
	Token    string  `json:"token"`
}

// ProfileResponse is the public view of a user relative to a viewer.
type ProfileResponse struct {
	Username  string  `json:"username"`
	Bio       string  `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

// ArticleResponse is the serialized form of an article.
type ArticleResponse struct {
	Slug           string          `json:"slug"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Body           string          `json:"body"`
	TagList        []string        `json:"tagList"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Favorited      bool            `json:"favorited"`
	FavoritesCount int64           `json:"favoritesCount"`
	Author         ProfileResponse `json:"author"`
}

// CommentResponse is the serialized form of a comment.
type CommentResponse struct {
	ID        uint            `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Body      string          `json:"body"`
	Author    ProfileResponse `json:"author"`
}

func imageOrNil(image string) *string {
	if image == "" {
		return nil
	}
	return &image
}

// NewUserResponse builds the user envelope payload.
func NewUserResponse(u *User, token string) UserResponse {
	return UserResponse{
		Username: u.Username,
		Email:    u.Email,
		Bio:      u.Bio,
		Image:    imageOrNil(u.Image),
		Token:    token,
	}
}

// NewProfileResponse builds a profile as seen by a viewer.
func NewProfileResponse(u *User, following bool) ProfileResponse {
	return ProfileResponse{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     imageOrNil(u.Image),
		Following: following,
	}
}

// NewArticleResponse builds an article payload from a row carrying its computed columns.
func NewArticleResponse(a *Article) ArticleResponse {
	tags := a.TagList
	if tags == nil {
		tags = []string{}
	}
	return ArticleResponse{
		Slug:           a.Slug,
		Title:          a.Title,
		Description:    a.Description,
		Body:           a.Body,
		TagList:        tags,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Favorited:      a.Favorited,
		FavoritesCount: a.FavoritesCount,
		Author:         NewProfileResponse(&a.Author, a.AuthorFollowing),
	}
}

// NewArticleResponses maps a page of articles, never returning nil.
func NewArticleResponses(articles []*Article) []ArticleResponse {
	out := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, NewArticleResponse(a))
	}
	return out
}

// NewCommentResponse builds a comment payload; following is the viewer's relation to the author.
func NewCommentResponse(c *Comment, following bool) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Body:      c.Body,
		Author:    NewProfileResponse(&c.Author, following),
	}
}
