// Command main runs the database seeder for Conduit.
package main

import (
	"context"
	"flag"
	"log"

	"conduit/internal/config"
	"conduit/internal/database"
	"conduit/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numArticles := flag.Int("articles", 60, "Number of articles to create")
	comments := flag.Int("comments", 3, "Comments per article")
	follows := flag.Int("follows", 5, "Follows attempted per user")
	favorites := flag.Int("favorites", 8, "Favorites attempted per user")
	fixtures := flag.String("fixtures", "", "YAML fixture file; replaces random generation")
	shouldClean := flag.Bool("clean", false, "Delete existing data before seeding")
	fast := flag.Bool("fast", false, "Use the minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		NumUsers:           *numUsers,
		NumArticles:        *numArticles,
		CommentsPerArticle: *comments,
		FollowsPerUser:     *follows,
		FavoritesPerUser:   *favorites,
		SkipBcrypt:         *fast,
		DryRun:             *dryRun,
		RandSeed:           *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum seed.Summary
	if *fixtures != "" {
		fx, err := seed.LoadFixtures(*fixtures)
		if err != nil {
			log.Fatalf("Loading fixtures failed: %v", err)
		}
		sum, err = s.ApplyFixtures(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = s.SeedRandom(ctx)
		if err != nil {
			log.Fatalf("Random seeding failed: %v", err)
		}
	}

	log.Printf("Seeded %s", sum)
	log.Printf("Generated users have the password: %s", seed.DefaultPassword)
}
