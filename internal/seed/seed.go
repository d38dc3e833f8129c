package seed

import (
	"context"
	"fmt"
	"time"

	"conduit/internal/middleware"
	"conduit/internal/models"
	"conduit/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures random seeding.
type Options struct {
	NumUsers           int
	NumArticles        int
	CommentsPerArticle int
	// FollowsPerUser and FavoritesPerUser are upper bounds; repeats are skipped.
	FollowsPerUser   int
	FavoritesPerUser int
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
	// SkipBcrypt stores a cheap hash; only for throwaway databases.
	SkipBcrypt bool
	DryRun     bool
	RandSeed   int64
}

// Summary counts what a run inserted.
type Summary struct {
	Users     int
	Articles  int
	Comments  int
	Follows   int
	Favorites int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d articles, %d comments, %d follows, %d favorites",
		s.Users, s.Articles, s.Comments, s.Follows, s.Favorites)
}

// Seeder persists generated or fixture data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
	now     func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts, factory: NewFactory(seed), now: time.Now}
}

// ClearAll deletes every row in dependency order.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.opts.DryRun {
		middleware.Logger.Info("[dry-run] ClearAll skipped")
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Comment{}, &models.Favorite{}, &models.Follow{}, &models.Article{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}

func (s *Seeder) hashPassword(plain string) (string, error) {
	cost := bcrypt.DefaultCost
	if s.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// backdate returns a created_at within the configured window.
func (s *Seeder) backdate() time.Time {
	maxDays := s.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	offset := time.Duration(s.factory.Intn(maxDays*24*60)) * time.Minute
	return s.now().Add(-offset)
}

func (s *Seeder) insert(tx *gorm.DB, v any) error {
	if s.opts.DryRun {
		return nil
	}
	return tx.Create(v).Error
}

// link inserts a follow or favorite, ignoring ones that already exist.
func (s *Seeder) link(tx *gorm.DB, v any) (bool, error) {
	if s.opts.DryRun {
		return true, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(v)
	return res.RowsAffected > 0, res.Error
}

// SeedRandom generates users, articles, comments, follows and favorites.
func (s *Seeder) SeedRandom(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hash, err := s.hashPassword(DefaultPassword)
		if err != nil {
			return err
		}

		users := make([]*models.User, 0, s.opts.NumUsers)
		for i := 0; i < s.opts.NumUsers; i++ {
			u := s.factory.BuildUser()
			u.Password = hash
			if err := s.insert(tx, u); err != nil {
				return fmt.Errorf("create user %s: %w", u.Username, err)
			}
			if s.opts.DryRun {
				u.ID = uint(i + 1)
			}
			users = append(users, u)
		}
		sum.Users = len(users)
		if len(users) == 0 {
			return nil
		}

		articles := make([]*models.Article, 0, s.opts.NumArticles)
		for i := 0; i < s.opts.NumArticles; i++ {
			author := users[s.factory.Intn(len(users))]
			a := s.factory.BuildArticle(author)
			a.CreatedAt = s.backdate()
			a.UpdatedAt = a.CreatedAt
			if err := s.insert(tx.Omit("Author"), a); err != nil {
				return fmt.Errorf("create article %s: %w", a.Slug, err)
			}
			if s.opts.DryRun {
				a.ID = uint(i + 1)
			}
			articles = append(articles, a)

			for j := 0; j < s.opts.CommentsPerArticle; j++ {
				c := s.factory.BuildComment(users[s.factory.Intn(len(users))], a)
				if err := s.insert(tx.Omit("Author", "Article"), c); err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
			}
		}
		sum.Articles = len(articles)

		for _, u := range users {
			for j := 0; j < s.opts.FollowsPerUser && len(users) > 1; j++ {
				other := users[s.factory.Intn(len(users))]
				if other.ID == u.ID {
					continue
				}
				ok, err := s.link(tx, &models.Follow{FollowerID: u.ID, FolloweeID: other.ID})
				if err != nil {
					return fmt.Errorf("create follow: %w", err)
				}
				if ok {
					sum.Follows++
				}
			}
			for j := 0; j < s.opts.FavoritesPerUser && len(articles) > 0; j++ {
				a := articles[s.factory.Intn(len(articles))]
				ok, err := s.link(tx, &models.Favorite{UserID: u.ID, ArticleID: a.ID})
				if err != nil {
					return fmt.Errorf("create favorite: %w", err)
				}
				if ok {
					sum.Favorites++
				}
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	middleware.Logger.Info("random seed complete", "summary", sum.String(), "dry_run", s.opts.DryRun)
	return sum, nil
}

// ApplyFixtures inserts a fixture set in one transaction. Fixture users
// without a password get DefaultPassword.
func (s *Seeder) ApplyFixtures(ctx context.Context, fx *Fixtures) (Summary, error) {
	if err := fx.Validate(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*models.User, len(fx.Users))
		for i, uf := range fx.Users {
			password := uf.Password
			if password == "" {
				password = DefaultPassword
			}
			hash, err := s.hashPassword(password)
			if err != nil {
				return err
			}
			u := s.factory.BuildUser(func(u *models.User) {
				u.Username = uf.Username
				u.Email = uf.Email
				if u.Email == "" {
					u.Email = uf.Username + "@example.com"
				}
				u.Bio = uf.Bio
				u.Image = uf.Image
				u.Password = hash
			})
			if err := s.insert(tx, u); err != nil {
				return fmt.Errorf("create user %s: %w", u.Username, err)
			}
			if s.opts.DryRun {
				u.ID = uint(i + 1)
			}
			users[uf.Username] = u
		}
		sum.Users = len(users)

		articles := make(map[string]*models.Article, len(fx.Articles))
		for i, af := range fx.Articles {
			tags := af.Tags
			if tags == nil {
				tags = []string{}
			}
			a := &models.Article{
				Slug:        validation.Slugify(af.Title),
				Title:       af.Title,
				Description: af.Description,
				Body:        af.Body,
				TagList:     tags,
				AuthorID:    users[af.Author].ID,
			}
			if a.Slug == "" {
				return fmt.Errorf("article %q has no usable slug", af.Title)
			}
			if err := s.insert(tx.Omit("Author"), a); err != nil {
				return fmt.Errorf("create article %s: %w", a.Slug, err)
			}
			if s.opts.DryRun {
				a.ID = uint(i + 1)
			}
			articles[af.Title] = a
		}
		sum.Articles = len(articles)

		for _, cf := range fx.Comments {
			c := &models.Comment{Body: cf.Body, AuthorID: users[cf.Author].ID, ArticleID: articles[cf.Article].ID}
			if err := s.insert(tx.Omit("Author", "Article"), c); err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			sum.Comments++
		}
		for _, ff := range fx.Follows {
			ok, err := s.link(tx, &models.Follow{FollowerID: users[ff.Follower].ID, FolloweeID: users[ff.Followee].ID})
			if err != nil {
				return fmt.Errorf("create follow: %w", err)
			}
			if ok {
				sum.Follows++
			}
		}
		for _, ff := range fx.Favorites {
			ok, err := s.link(tx, &models.Favorite{UserID: users[ff.User].ID, ArticleID: articles[ff.Article].ID})
			if err != nil {
				return fmt.Errorf("create favorite: %w", err)
			}
			if ok {
				sum.Favorites++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	middleware.Logger.Info("fixtures applied", "summary", sum.String(), "dry_run", s.opts.DryRun)
	return sum, nil
}
