// Command migrate applies the embedded schema migrations to DATABASE_URL.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/uep/eventcheckin/pkg/config"
	"github.com/uep/eventcheckin/pkg/database"
	"github.com/uep/eventcheckin/pkg/logger"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", logger.Err(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.MigratePool(ctx, pool); err != nil {
		logger.Error("Migration failed", logger.Err(err))
		pool.Close()
		os.Exit(1)
	}
	logger.Info("Migrations applied")
}
