package models

import "time"

// Article is a published post identified publicly by its slug.
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	Body        string    `gorm:"type:text;not null;default:''" json:"body"`
	TagList     []string  `gorm:"serializer:json;type:text;not null" json:"tag_list"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Computed per query; never persisted.
	FavoritesCount  int64 `gorm:"->;-:migration" json:"favorites_count"`
	Favorited       bool  `gorm:"->;-:migration" json:"favorited"`
	AuthorFollowing bool  `gorm:"->;-:migration" json:"author_following"`
}

// Favorite records that a user favorited an article.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_pair" json:"user_id"`
	ArticleID uint      `gorm:"not null;uniqueIndex:idx_favorite_pair;index" json:"article_id"`
	CreatedAt time.Time `json:"created_at"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Article Article `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string {
	return "article_favorites"
}
