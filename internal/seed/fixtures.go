package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is a hand-written data set, usually loaded from YAML:
//
//	users:
//	  - username: jake
//	    email: jake@jake.jake
//	articles:
//	  - author: jake
//	    title: How to train your dragon
//	    tags: [dragons, training]
//	follows:
//	  - {follower: jane, followee: jake}
type Fixtures struct {
	Users     []UserFixture     `yaml:"users"`
	Articles  []ArticleFixture  `yaml:"articles"`
	Comments  []CommentFixture  `yaml:"comments"`
	Follows   []FollowFixture   `yaml:"follows"`
	Favorites []FavoriteFixture `yaml:"favorites"`
}

type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
	Image    string `yaml:"image"`
}

// ArticleFixture is referenced by other fixtures through its title.
type ArticleFixture struct {
	Author      string   `yaml:"author"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Body        string   `yaml:"body"`
	Tags        []string `yaml:"tags"`
}

type CommentFixture struct {
	Author  string `yaml:"author"`
	Article string `yaml:"article"`
	Body    string `yaml:"body"`
}

type FollowFixture struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
}

type FavoriteFixture struct {
	User    string `yaml:"user"`
	Article string `yaml:"article"`
}

// LoadFixtures reads and parses a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures decodes YAML and checks that every reference resolves.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate reports duplicate users or titles and references to unknown ones.
func (fx *Fixtures) Validate() error {
	users := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		if users[u.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		users[u.Username] = true
	}

	articles := make(map[string]bool, len(fx.Articles))
	for i, a := range fx.Articles {
		if a.Title == "" {
			return fmt.Errorf("articles[%d]: title is required", i)
		}
		if !users[a.Author] {
			return fmt.Errorf("articles[%d]: unknown author %q", i, a.Author)
		}
		if articles[a.Title] {
			return fmt.Errorf("articles[%d]: duplicate title %q", i, a.Title)
		}
		articles[a.Title] = true
	}

	for i, c := range fx.Comments {
		if !users[c.Author] {
			return fmt.Errorf("comments[%d]: unknown author %q", i, c.Author)
		}
		if !articles[c.Article] {
			return fmt.Errorf("comments[%d]: unknown article %q", i, c.Article)
		}
	}
	for i, f := range fx.Follows {
		if !users[f.Follower] || !users[f.Followee] {
			return fmt.Errorf("follows[%d]: unknown user in %s -> %s", i, f.Follower, f.Followee)
		}
		if f.Follower == f.Followee {
			return fmt.Errorf("follows[%d]: %s cannot follow themselves", i, f.Follower)
		}
	}
	for i, f := range fx.Favorites {
		if !users[f.User] {
			return fmt.Errorf("favorites[%d]: unknown user %q", i, f.User)
		}
		if !articles[f.Article] {
			return fmt.Errorf("favorites[%d]: unknown article %q", i, f.Article)
		}
	}
	return nil
}
