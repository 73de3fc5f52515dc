package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/api"
	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/runner"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Load the preprocessing bundle, from disk or object storage
	preprocess, err := loadBundle(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load preprocessing bundle")
	}

	// Wire the forecast pipeline
	adapter := forecast.NewAdapter(
		&forecast.SeasonalNaiveModel{Bundle: preprocess},
		preprocess,
		cfg.Forecast.ModelTimeout,
	)
	adapter.Economics = cfg.Economics
	adapter.Policies = cfg.Policies
	batchRunner := runner.New(adapter, runner.Config{
		Workers:          cfg.Forecast.Workers,
		ModelConcurrency: cfg.Forecast.ModelConcurrency,
	})

	resultsCache, err := cache.NewResultsCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize results cache")
	}

	schema := dataset.DefaultSchema()
	schema.ByStore = cfg.Forecast.ByStore
	forecastService := service.NewForecastService(
		postgres.NewObservationRepository(db),
		postgres.NewResultsRepository(db),
		batchRunner,
		resultsCache,
		schema,
	)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		ForecastService: forecastService,
		UploadDir:       cfg.App.UploadDir,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// loadBundle prefers the local bundle file; when it is absent and object
// storage is configured, the bundle is fetched from the bucket instead.
func loadBundle(cfg *config.Config) (*bundle.Preprocess, error) {
	if _, err := os.Stat(cfg.Forecast.BundlePath); err == nil {
		return bundle.Load(cfg.Forecast.BundlePath)
	}

	if cfg.Storage.Endpoint == "" {
		return nil, fmt.Errorf("bundle %s not found and no object storage configured", cfg.Forecast.BundlePath)
	}

	store, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return bundle.Fetch(ctx, store, "bundles/preprocess.json")
}
