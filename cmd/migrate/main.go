// Command migrate runs schema operations against DATABASE_URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"vista/internal/config"
	"vista/internal/database"
	"vista/internal/observability"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	// Schema changes here are explicit; connecting must not apply any.
	cfg.DBSchemaMode = config.SchemaModeNone
	db, err := database.Connect(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	return execute(context.Background(), db, logger, flag.Args())
}

func execute(ctx context.Context, db *gorm.DB, logger *slog.Logger, args []string) error {
	m, err := database.NewMigrator(db, logger)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "up":
		if err := m.Up(ctx); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		if err := database.ApplySchema(ctx, db, config.SchemaModeAuto, logger); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := m.Status(ctx)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("applied=%d pending=%d", len(status.Applied), len(status.Pending))
		for _, p := range status.Pending {
			log.Printf("pending: %s", p)
		}
	case "down":
		if len(args) < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate down <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Down(ctx, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", version)
	default:
		return usage()
	}
	return nil
}
