// Command archiver moves refresh-token records past the retention period to
// object storage and removes them from the database. It is meant to run
// periodically (cron, Kubernetes CronJob).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/archive"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "archive failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	rm, err := repomanager.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rm.Close()

	if err := rm.RunMigrations(ctx); err != nil {
		return err
	}

	client, err := archive.NewS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	a, err := archive.New(rm.Pruner(), client, cfg, logger, nil)
	if err != nil {
		return err
	}

	_, err = a.Run(ctx)
	return err
}
