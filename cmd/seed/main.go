// Command main runs the database seeder for NutriScan.
package main

import (
	"context"
	"flag"
	"log"

	"nutriscan/internal/config"
	"nutriscan/internal/database"
	"nutriscan/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixtures := flag.String("fixtures", "", "Load a YAML fixture file instead of generating random data")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{NumUsers: *numUsers, NumPosts: *numPosts, RandomSeed: *randomSeed})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	var sum *seed.Summary
	if *fixtures != "" {
		fx, err := seed.LoadFixturesFile(*fixtures)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		sum, err = s.ApplyFixtures(ctx, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		sum, err = s.SeedCommunity(ctx)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Done: %d users, %d posts, %d comments, %d likes, %d favorites, %d views",
		sum.Users, sum.Posts, sum.Comments, sum.Likes, sum.Favorites, sum.Views)
	log.Printf("Phone logins accept the configured code (LOGIN_FIXED_CODE=%s in fixed mode)", cfg.LoginFixedCode)
}
