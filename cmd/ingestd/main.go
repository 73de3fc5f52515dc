package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/drive"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// ingestd is the Drive-facing ingestion daemon: it lists CSV sales exports
// in a shared folder and loads them into the observation store on demand.
func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	// Initialize Google Drive service
	driveService, err := drive.NewService(context.Background(), cfg.Drive.CredentialsFile)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	// Initialize Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Ingestion only needs the observation store; no model, no runner
	schema := dataset.DefaultSchema()
	schema.ByStore = cfg.Forecast.ByStore
	forecastService := service.NewForecastService(
		postgres.NewObservationRepository(db),
		postgres.NewResultsRepository(db),
		nil,
		cache.NewNoopResultsCache(),
		schema,
	)

	ingestService := drive.NewIngestService(driveService, forecastService, cfg.App.UploadDir)

	// Register routes
	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Drive.Port)
	logger.Log.Info().Str("addr", addr).Msg("Ingest daemon starting")
	logger.Log.Fatal().Err(http.ListenAndServe(addr, r)).Msg("Ingest daemon stopped")
}
