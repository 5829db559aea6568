// migrate applies the embedded SQL migrations to DATABASE_URL.
//
// Usage: go run ./cmd/migrate [--list]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"repair-desk/internal/config"
	"repair-desk/internal/db"
	"repair-desk/migrations"

	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	list := fs.Bool("list", false, "list the embedded migrations and exit")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall deadline")
	_ = fs.Parse(os.Args[1:])

	if *list {
		ms, err := migrations.Discover()
		if err != nil {
			log.Fatalf("Failed to read migrations: %v", err)
		}
		for _, m := range ms {
			fmt.Printf("%s  %s\n", m.Checksum[:12], m.Filename)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool, logger)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("migrations complete", "applied", len(applied))
}
