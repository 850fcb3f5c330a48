package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"ticketrouter/internal/app"
	"ticketrouter/internal/common/logging"
	"ticketrouter/internal/config"
)

func main() {
	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", err)
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to start service", err)
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		logger.Error("service exited with error", err)
		os.Exit(1)
	}
}
