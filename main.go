package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	clts "hyperwhales/clients"
	"hyperwhales/config"
	"hyperwhales/internal/app"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load config from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	logger.Info("starting tracker",
		zap.Bool("isProd", cfg.IsProd),
		zap.Bool("fillMonitor", cfg.FillMonitor.Enabled),
	)

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, cfg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, cfg)
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}
}
