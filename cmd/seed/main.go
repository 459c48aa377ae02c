// Command seed fills a development database with demo users and tracks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"vista/internal/config"
	"vista/internal/database"
	"vista/internal/observability"
	"vista/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	tracksPerUser := flag.Int("tracks", defaults.TracksPerUser, "Number of tracks per user")
	publicRatio := flag.Float64("public", defaults.PublicRatio, "Share of tracks that are public (0..1)")
	randSeed := flag.Int64("rand-seed", 0, "Seed for reproducible data; 0 picks one")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	shouldClean := flag.Bool("clean", false, "Delete all users and tracks before seeding")
	flag.Parse()

	if err := run(*fixture, *shouldClean, seed.Options{
		Users:         *numUsers,
		TracksPerUser: *tracksPerUser,
		PublicRatio:   *publicRatio,
		RandSeed:      *randSeed,
	}); err != nil {
		log.Fatal(err)
	}
}

func run(fixture string, clean bool, opts seed.Options) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to seed a production database")
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	s := seed.NewSeeder(db, logger)
	if clean {
		if err := s.Clean(ctx); err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
	}

	var res *seed.Result
	if fixture != "" {
		f, err := os.Open(fixture)
		if err != nil {
			return fmt.Errorf("open fixture: %w", err)
		}
		defer func() { _ = f.Close() }()

		parsed, err := seed.ParseFixture(f)
		if err != nil {
			return err
		}
		res, err = s.LoadFixture(ctx, parsed)
		if err != nil {
			return fmt.Errorf("fixture seeding failed: %w", err)
		}
	} else {
		res, err = s.Demo(ctx, opts)
		if err != nil {
			return fmt.Errorf("demo seeding failed: %w", err)
		}
	}

	log.Printf("seeded %d users and %d tracks", res.Users, res.Tracks)
	return nil
}
