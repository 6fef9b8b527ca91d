package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/config"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
)

var defaultBrews = []string{
	"Classic Black",
	"Ginger Lemon",
	"Hibiscus Rose",
	"Jun Honey Green",
}

// Usage: seed [brew name ...]
func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(names []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.App.IsDev() {
		return fmt.Errorf("refusing to seed: APP_ENV must be '%s' (got '%s')", config.EnvDev, cfg.App.Env)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zap.NewNop()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if len(names) == 0 {
		names = defaultBrews
	}

	fmt.Println("Seeding brews...")
	brews := repository.NewBrewRepository(pg)
	created := 0
	for _, name := range names {
		err := brews.Create(ctx, &domain.Brew{Name: name})
		switch {
		case err == nil:
			created++
			fmt.Printf("✓ %s\n", name)
		case errors.Is(err, repository.ErrDuplicateName):
			fmt.Printf("- %s (exists)\n", name)
		default:
			return fmt.Errorf("seed brew %q: %w", name, err)
		}
	}
	fmt.Printf("Done: %d created, %d skipped\n", created, len(names)-created)
	return nil
}
