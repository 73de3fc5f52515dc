package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/features"
	"github.com/andresuchdata/stockcast/internal/sequence"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// runPrepare turns a raw CSV export into model-ready artifacts: supervised
// train/validation window files and the preprocessing bundle the serving
// path replays at inference time.
func runPrepare(c *cli.Context) error {
	byStore := c.Bool("by-store")

	series, err := loadSeries(c.String("input"), byStore)
	if err != nil {
		return err
	}

	cfg := sequence.Config{
		Lookback:         c.Int("lookback"),
		Horizon:          c.Int("horizon"),
		ValSplitFraction: c.Float64("val-split"),
		Margin:           c.Int("margin"),
		UseLogTarget:     c.Bool("log-target"),
	}

	train, val, err := sequence.TimeSplitBySeries(cfg, series)
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}

	trainDS, b, err := sequence.MakeSupervised(cfg, train)
	if err != nil {
		return fmt.Errorf("building training windows failed: %w", err)
	}
	valDS, err := sequence.ApplyBundle(b, val)
	if err != nil {
		return fmt.Errorf("building validation windows failed: %w", err)
	}

	outDir := c.String("out-dir")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	bundlePath := filepath.Join(outDir, "preprocess.json")
	if err := b.Save(bundlePath); err != nil {
		return err
	}
	if err := writeDataset(filepath.Join(outDir, "train.json"), trainDS); err != nil {
		return err
	}
	if err := writeDataset(filepath.Join(outDir, "val.json"), valDS); err != nil {
		return err
	}

	logger.Log.Info().
		Int("series", len(series)).
		Int("train_windows", trainDS.Len()).
		Int("val_windows", valDS.Len()).
		Str("bundle", bundlePath).
		Msg("prepare complete")

	if c.Bool("upload") {
		if err := uploadBundle(bundlePath); err != nil {
			return err
		}
	}
	return nil
}

// loadSeries runs the shared ingestion pipeline: normalize, aggregate
// duplicates, engineer features, drop warm-up rows, group by series.
func loadSeries(path string, byStore bool) ([]domain.Series, error) {
	table, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}

	schema := dataset.DefaultSchema()
	schema.ByStore = byStore
	rows, err := dataset.Normalize(table, schema)
	if err != nil {
		return nil, err
	}
	rows = dataset.AggregateDuplicates(rows, byStore)

	rows = features.AddCalendarFeatures(rows)
	rows, err = features.AddLagFeatures(rows, byStore)
	if err != nil {
		return nil, err
	}
	rows = features.DropIncomplete(rows, features.TrainingColumns())

	return domain.GroupBySeries(rows, byStore), nil
}

func writeDataset(path string, ds *sequence.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	return enc.Encode(ds)
}

// uploadBundle pushes the bundle to the configured S3-compatible bucket so
// serving instances can fetch it without a shared filesystem.
func uploadBundle(path string) error {
	store, err := storage.NewClient(storage.Config{
		Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
		AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		Bucket:    envOr("STORAGE_BUCKET", "stockcast-artifacts"),
		UseSSL:    os.Getenv("STORAGE_USE_SSL") != "false",
	})
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.UploadObject(ctx, "bundles/preprocess.json", data); err != nil {
		return err
	}

	logger.Log.Info().Str("key", "bundles/preprocess.json").Msg("bundle uploaded")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
