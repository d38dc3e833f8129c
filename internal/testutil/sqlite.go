// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"conduit/internal/cache"
	"conduit/internal/database"
	"conduit/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// OpenSQLite returns an in-memory database with the full schema and foreign
// keys enforced. The pool is pinned to one connection because each
// connection to :memory: sees its own empty database.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// StartRedis installs a miniredis-backed client as the package cache client
// and removes it when the test ends.
func StartRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return mr, rdb
}

// CreateUser inserts a user with a unique username and email derived from prefix.
// The stored password is not a valid hash; use it only where login is not exercised.
func CreateUser(t testing.TB, db *gorm.DB, prefix string) *models.User {
	t.Helper()
	n := seq.Add(1)
	u := &models.User{
		Username: fmt.Sprintf("%s%d", prefix, n),
		Email:    fmt.Sprintf("%s%d@example.com", prefix, n),
		Password: "x",
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateArticle inserts an article owned by author.
func CreateArticle(t testing.TB, db *gorm.DB, author *models.User, slug string, tags ...string) *models.Article {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	a := &models.Article{
		Slug:        slug,
		Title:       slug,
		Description: "description of " + slug,
		Body:        "body of " + slug,
		TagList:     tags,
		AuthorID:    author.ID,
	}
	if err := db.Omit("Author").Create(a).Error; err != nil {
		t.Fatalf("create article: %v", err)
	}
	return a
}
