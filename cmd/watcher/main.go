package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"coinladder/internal/config"
	"coinladder/internal/database"
	"coinladder/internal/logger"
	"coinladder/internal/quotes"
	"coinladder/internal/store"
	"coinladder/internal/watcher"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.New(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize quote client
	quoteClient := quotes.NewRestClient(&cfg.Quotes, log)
	if err := quoteClient.Ping(context.Background()); err != nil {
		log.Fatal("Failed to reach quote source", zap.Error(err))
	}
	log.Info("Quote source reachable.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize and run the price watcher
	repo := store.NewRepository(db)
	engine := watcher.NewEngine(log, &cfg, quoteClient, repo)
	engine.Run(ctx)

	log.Info("Watcher has been shut down.")
}
