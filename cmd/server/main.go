package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"coinladder/internal/config"
	"coinladder/internal/database"
	"coinladder/internal/logger"
	"coinladder/internal/service"
	"coinladder/internal/store"
)

func main() {
	// Load configuration
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

	// Connect to the database
	db, err := database.New(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	repo := store.NewRepository(db)
	holdings := service.NewHoldingService(log, repo)
	ladders := service.NewLadderService(log, repo)
	forecasts := service.NewForecastService(log, repo)

	// Setup HTTP server
	mux := http.NewServeMux()

	apiHandler := NewAPIHandler(log, holdings, ladders, forecasts, repo)

	// API endpoints
	mux.HandleFunc("/api/transactions", apiHandler.TransactionsHandler)
	mux.HandleFunc("/api/holdings", apiHandler.HoldingsHandler)
	mux.HandleFunc("/api/ladders", apiHandler.LaddersHandler)
	mux.HandleFunc("/api/ladders/confirm", apiHandler.ConfirmHandler)
	mux.HandleFunc("/api/forecasts", apiHandler.ForecastsHandler)
	mux.HandleFunc("/api/alerts", apiHandler.AlertsHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting API server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("API server failed", zap.Error(err))
	}
}
