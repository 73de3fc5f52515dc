package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/optimizer"
	"github.com/andresuchdata/stockcast/internal/runner"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// runBatch forecasts every series in a CSV export and emits the batch
// result as JSON. The built-in seasonal-naive model stands in for an
// externally trained one; both speak the same window contract.
func runBatch(c *cli.Context) error {
	b, err := bundle.Load(c.String("bundle"))
	if err != nil {
		return fmt.Errorf("loading bundle failed: %w", err)
	}

	table, err := dataset.LoadCSV(c.String("input"))
	if err != nil {
		return err
	}

	adapter := forecast.NewAdapter(
		&forecast.SeasonalNaiveModel{Bundle: b},
		b,
		c.Duration("timeout"),
	)
	adapter.Policies = optimizer.DefaultPolicyTable()

	batchRunner := runner.New(adapter, runner.Config{
		Workers:          c.Int("workers"),
		ModelConcurrency: c.Int64("model-concurrency"),
	})

	schema := dataset.DefaultSchema()
	schema.ByStore = c.Bool("by-store")

	result, err := batchRunner.RunTable(c.Context, table, schema)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if path := c.String("reorder-csv"); path != "" {
		if err := writeReorderCSV(path, result); err != nil {
			return fmt.Errorf("writing reorder list failed: %w", err)
		}
	}

	logger.Log.Info().
		Int("predicted", len(result.Predictions)).
		Int("skipped", len(result.Skipped)).
		Int("reorders", result.ReorderCount()).
		Msg("batch finished")
	return nil
}

// writeReorderCSV exports only the products that need a reorder, most
// urgent (fewest days of supply) first.
func writeReorderCSV(path string, result *domain.BatchResult) error {
	records := make([]*domain.ForecastRecord, 0, len(result.Predictions))
	for _, rec := range result.Predictions {
		if rec.Optimization.NeedsReorder {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Optimization.DaysOfSupply < records[j].Optimization.DaysOfSupply
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"product_id", "store_id", "category", "current_stock",
		"reorder_point", "order_quantity", "days_of_supply",
		"forecast_daily_mean",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ProductID,
			rec.StoreID,
			rec.Category,
			formatQty(rec.Optimization.CurrentStock),
			formatQty(rec.Optimization.ReorderPoint),
			formatQty(rec.Optimization.OrderQuantity),
			formatQty(rec.Optimization.DaysOfSupply),
			formatQty(rec.ForecastDailyMean),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
