// Package bootstrap connects the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"

	"conduit/internal/cache"
	"conduit/internal/config"
	"conduit/internal/database"
	"conduit/internal/middleware"
	"conduit/internal/models"
	"conduit/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis. In development, an empty database is
// filled from cfg.SeedFixtures when that is set.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedDevFixtures(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development fixtures: %w", err)
	}

	return db, r, nil
}

func seedDevFixtures(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg.Env != "development" || cfg.SeedFixtures == "" {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	fx, err := seed.LoadFixtures(cfg.SeedFixtures)
	if err != nil {
		return err
	}
	sum, err := seed.NewSeeder(db, seed.Options{}).ApplyFixtures(ctx, fx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("development fixtures loaded", "path", cfg.SeedFixtures, "summary", sum.String())
	return nil
}
