package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "stockcast",
		Usage: "Demand forecasting and reorder recommendation toolkit",
		Commands: []*cli.Command{
			{
				Name:  "prepare",
				Usage: "Build supervised training windows and the preprocessing bundle from a CSV export",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "CSV sales export to prepare",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out-dir",
						Usage:   "Directory for the bundle and dataset files",
						Value:   "./data/output",
						EnvVars: []string{"APP_DATA_DIR"},
					},
					&cli.IntFlag{Name: "lookback", Value: 28, Usage: "Input window length in days"},
					&cli.IntFlag{Name: "horizon", Value: 7, Usage: "Forecast horizon in days"},
					&cli.Float64Flag{Name: "val-split", Value: 0.15, Usage: "Chronological tail fraction held out per series"},
					&cli.IntFlag{Name: "margin", Value: 5, Usage: "Extra observations required beyond lookback+horizon"},
					&cli.BoolFlag{Name: "log-target", Usage: "Train on log1p demand targets"},
					&cli.BoolFlag{Name: "by-store", Value: true, Usage: "Treat each product+store pair as its own series"},
					&cli.BoolFlag{Name: "upload", Usage: "Also upload the bundle to object storage"},
				},
				Action: runPrepare,
			},
			{
				Name:  "batch",
				Usage: "Run a whole-catalog forecast batch from a CSV export",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "CSV sales export to forecast",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "bundle",
						Usage:    "Preprocessing bundle produced by prepare",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write the batch result JSON here instead of stdout",
					},
					&cli.StringFlag{
						Name:  "reorder-csv",
						Usage: "Also write the reorder list as CSV, most urgent first",
					},
					&cli.BoolFlag{Name: "by-store", Value: true, Usage: "Treat each product+store pair as its own series"},
					&cli.IntFlag{Name: "workers", Value: 4, Usage: "Concurrent series pipelines"},
					&cli.Int64Flag{Name: "model-concurrency", Value: 2, Usage: "Concurrent in-flight model calls"},
					&cli.DurationFlag{Name: "timeout", Usage: "Per-product model call timeout", Value: 0},
				},
				Action: runBatch,
			},
			{
				Name:   "optimize",
				Usage:  "Compute the reorder recommendation for one product from its demand statistics",
				Flags:  optimizeFlags(),
				Action: runOptimize,
			},
			{
				Name:  "seed",
				Usage: "Load a CSV sales export into the observations table",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
					&cli.StringFlag{
						Name:     "input",
						Usage:    "CSV sales export to load",
						Required: true,
					},
					&cli.BoolFlag{Name: "by-store", Value: true, Usage: "Aggregate duplicates per product+store+day"},
				},
				Action: runSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
