package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/features"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/optimizer"
)

func newTestBundle() *bundle.Preprocess {
	cols := []string{
		domain.ColUnitsSold,
		features.LagColumn(1),
		features.LagColumn(7),
	}
	scaler := bundle.StandardScaler{Mean: make([]float64, len(cols)), Std: []float64{1, 1, 1}}
	return &bundle.Preprocess{
		FeatureCols: cols,
		Scaler:      scaler,
		Lookback:    5,
		Horizon:     7,
		CreatedAt:   time.Now().UTC(),
	}
}

func testAdapter(model forecast.Forecaster) *forecast.Adapter {
	return forecast.NewAdapter(model, newTestBundle(), 0)
}

func mkSeries(product string, days int, demand float64) domain.Series {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]domain.Row, days)
	for i := range rows {
		rows[i] = domain.Row{
			Date:        start.AddDate(0, 0, i),
			ProductID:   product,
			StoreID:     "S1",
			Seasonality: "Bakery",
			Values: map[string]float64{
				domain.ColUnitsSold:      demand,
				domain.ColPrice:          3,
				domain.ColInventoryLevel: 10,
			},
		}
	}
	return domain.Series{Key: domain.SeriesKey{ProductID: product, StoreID: "S1"}, Rows: rows}
}

func constantModel(v float64) forecast.ForecastFunc {
	return func(context.Context, [][]float64) (float64, error) { return v, nil }
}

func TestRunSkipsFailingSeriesAndKeepsRest(t *testing.T) {
	a := testAdapter(constantModel(35))
	r := New(a, Config{Workers: 3})

	series := []domain.Series{
		mkSeries("A", 20, 5),
		mkSeries("B", 3, 5), // too short for the lookback
		mkSeries("C", 20, 5),
	}

	result, err := r.Run(context.Background(), series)
	require.NoError(t, err)

	assert.Len(t, result.Predictions, 2)
	assert.Contains(t, result.Predictions, "A@S1")
	assert.Contains(t, result.Predictions, "C@S1")

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "B@S1", result.Skipped[0].ProductID)
	assert.NotEmpty(t, result.Skipped[0].Reason)
	assert.False(t, result.StartedAt.IsZero())
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestRunHungModelBecomesSkip(t *testing.T) {
	hung := forecast.ForecastFunc(func(context.Context, [][]float64) (float64, error) {
		time.Sleep(500 * time.Millisecond)
		return 1, nil
	})
	a := forecast.NewAdapter(hung, newTestBundle(), 0)
	a.Timeout = 20 * time.Millisecond
	r := New(a, Config{Workers: 2})

	result, err := r.Run(context.Background(), []domain.Series{mkSeries("A", 20, 5)})
	require.NoError(t, err)
	assert.Empty(t, result.Predictions)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Reason, "model call failed")
}

func TestRunUnknownCategoryWithoutDefaultIsFatal(t *testing.T) {
	a := testAdapter(constantModel(35))
	a.Policies = optimizer.PolicyTable{
		Policies: map[string]optimizer.CategoryPolicy{
			"Dairy": {SafetyMultiplier: 1.4, MaxOrderWeeks: 3},
		},
	}
	r := New(a, Config{Workers: 2})

	_, err := r.Run(context.Background(), []domain.Series{mkSeries("A", 20, 5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bakery")
}

func TestModelConcurrencyBound(t *testing.T) {
	var inflight, peak atomic.Int64
	model := forecast.ForecastFunc(func(context.Context, [][]float64) (float64, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inflight.Add(-1)
		return 35, nil
	})

	a := testAdapter(model)
	r := New(a, Config{Workers: 8, ModelConcurrency: 2})

	series := make([]domain.Series, 8)
	for i := range series {
		series[i] = mkSeries(fmt.Sprintf("P%d", i), 20, 5)
	}
	result, err := r.Run(context.Background(), series)
	require.NoError(t, err)
	assert.Len(t, result.Predictions, 8)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestRunTable(t *testing.T) {
	cols := []string{
		"Date", "Store ID", "Product ID", "Inventory Level", "Units Sold",
		"Units Ordered", "Price", "Discount", "Holiday/Promotion",
		"Competitor Pricing", "Seasonality",
	}
	var records [][]string
	for i := 0; i < 20; i++ {
		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		records = append(records, []string{
			date.Format("2006-01-02"), "S1", "P1", "10", "5",
			"0", "3.00", "0", "0", "2.80", "Bakery",
		})
	}

	a := testAdapter(constantModel(35))
	r := New(a, Config{Workers: 2})

	result, err := r.RunTable(context.Background(), dataset.RawTable{Columns: cols, Records: records}, dataset.DefaultSchema())
	require.NoError(t, err)
	require.Len(t, result.Predictions, 1)

	rec := result.Predictions["P1@S1"]
	assert.InDelta(t, 5, rec.ForecastDailyMean, 1e-9)
	assert.Equal(t, "Bakery", rec.Category)
}

func TestRunTableSchemaErrorIsFatal(t *testing.T) {
	table := dataset.RawTable{Columns: []string{"Date", "Units Sold"}}
	r := New(testAdapter(constantModel(1)), Config{Workers: 1})

	_, err := r.RunTable(context.Background(), table, dataset.DefaultSchema())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.False(t, domain.IsSkippable(err))
}
