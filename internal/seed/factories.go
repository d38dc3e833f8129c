// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"

	"conduit/internal/models"
	"conduit/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password every generated user gets.
const DefaultPassword = "password123"

var tagPool = []string{
	"golang", "devops", "frontend", "backend", "databases", "testing", "career",
	"security", "cloud", "linux", "design", "productivity", "opensource", "rust",
}

// Factory builds domain entities with realistic fake content. It never
// touches the database; the Seeder persists what it builds.
type Factory struct {
	faker *gofakeit.Faker
	seen  map[string]int
}

// NewFactory creates a Factory. The same seed yields the same data.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed), seen: make(map[string]int)}
}

// unique appends a counter to values already handed out.
func (f *Factory) unique(kind, value string) string {
	key := kind + ":" + value
	n := f.seen[key]
	f.seen[key] = n + 1
	if n == 0 {
		return value
	}
	return fmt.Sprintf("%s-%d", value, n+1)
}

// BuildUser returns an unsaved user with a plaintext password; the Seeder hashes it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := f.unique("username", strings.ToLower(f.faker.Username()))
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: DefaultPassword,
		Bio:      f.faker.Sentence(8),
		Image:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildArticle returns an unsaved article by author with a unique slug.
func (f *Factory) BuildArticle(author *models.User, overrides ...func(*models.Article)) *models.Article {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), ".")
	article := &models.Article{
		Title:       title,
		Description: f.faker.Sentence(12),
		Body:        f.faker.Paragraph(3, 4, 12, "\n\n"),
		TagList:     f.pickTags(f.faker.Number(0, 3)),
		AuthorID:    author.ID,
	}
	for _, override := range overrides {
		override(article)
	}
	article.Slug = f.unique("slug", validation.Slugify(article.Title))
	return article
}

// BuildComment returns an unsaved comment by author on article.
func (f *Factory) BuildComment(author *models.User, article *models.Article) *models.Comment {
	return &models.Comment{
		Body:      f.faker.Paragraph(1, f.faker.Number(1, 3), 10, " "),
		AuthorID:  author.ID,
		ArticleID: article.ID,
	}
}

func (f *Factory) pickTags(n int) []string {
	tags := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(tags) < n {
		tag := tagPool[f.faker.Number(0, len(tagPool)-1)]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// Intn returns a number in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
