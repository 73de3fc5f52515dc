package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/features"
)

func identityScaler(n int) bundle.StandardScaler {
	s := bundle.StandardScaler{Mean: make([]float64, n), Std: make([]float64, n)}
	for i := range s.Std {
		s.Std[i] = 1
	}
	return s
}

func testBundle(lookback, horizon int, logTarget bool) *bundle.Preprocess {
	cols := []string{
		domain.ColUnitsSold,
		features.ColDayOfWeek,
		features.LagColumn(1),
		features.LagColumn(7),
	}
	return &bundle.Preprocess{
		FeatureCols:  cols,
		Scaler:       identityScaler(len(cols)),
		Lookback:     lookback,
		Horizon:      horizon,
		UseLogTarget: logTarget,
		CreatedAt:    time.Now().UTC(),
	}
}

func historySeries(days int, demand, price, stock float64) domain.Series {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]domain.Row, days)
	for i := range rows {
		rows[i] = domain.Row{
			Date:        start.AddDate(0, 0, i),
			ProductID:   "P42",
			StoreID:     "S1",
			Seasonality: "Dairy",
			Values: map[string]float64{
				domain.ColUnitsSold:      demand,
				domain.ColPrice:          price,
				domain.ColInventoryLevel: stock,
			},
		}
	}
	return domain.Series{Key: domain.SeriesKey{ProductID: "P42", StoreID: "S1"}, Rows: rows}
}

func constantModel(v float64) ForecastFunc {
	return func(context.Context, [][]float64) (float64, error) { return v, nil }
}

func TestBuildLastWindow(t *testing.T) {
	a := NewAdapter(constantModel(0), testBundle(5, 7, false), 0)

	// 20 rows, 7 warm-up rows lost to lag_7, 13 usable
	window, err := a.BuildLastWindow(historySeries(20, 10, 2, 40))
	require.NoError(t, err)
	require.Len(t, window, 5)
	assert.Len(t, window[0], len(a.Bundle.FeatureCols))
}

func TestBuildLastWindowInsufficientHistory(t *testing.T) {
	a := NewAdapter(constantModel(0), testBundle(5, 7, false), 0)

	// 9 rows leave only 2 usable after the lag_7 warm-up
	_, err := a.BuildLastWindow(historySeries(9, 10, 2, 40))

	var insufficient *domain.InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Have)
	assert.True(t, domain.IsSkippable(err))
}

func TestPredictNextHorizon(t *testing.T) {
	a := NewAdapter(constantModel(70), testBundle(5, 7, false), 0)

	rec, err := a.PredictNextHorizon(context.Background(), historySeries(20, 10, 2, 40))
	require.NoError(t, err)

	assert.Equal(t, "P42", rec.ProductID)
	assert.Equal(t, "Dairy", rec.Category)
	assert.Equal(t, 7, rec.HorizonDays)
	assert.InDelta(t, 70, rec.HorizonDemand, 1e-9)
	assert.InDelta(t, 10, rec.ForecastDailyMean, 1e-9)
	assert.InDelta(t, 10, rec.HistDailyMean, 1e-9)
	assert.InDelta(t, 0, rec.HistDailyStd, 1e-9)
	assert.InDelta(t, 7, rec.LeadTimeDays, 1e-9)

	// constant demand 10/day, 7-day lead time: reorder point 70, stock 40
	opt := rec.Optimization
	assert.InDelta(t, 70, opt.ReorderPoint, 1e-9)
	assert.True(t, opt.NeedsReorder)
	assert.InDelta(t, 100, opt.EOQConstrained, 1e-9) // domain cap
	assert.InDelta(t, 130, opt.OrderQuantity, 1e-9)  // 70 + 100 - 40
}

func TestPredictNextHorizonStampsGenerationTime(t *testing.T) {
	a := NewAdapter(constantModel(70), testBundle(5, 7, false), 0)
	fixed := time.Date(2024, 6, 15, 8, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	a.now = func() time.Time { return fixed }

	rec, err := a.PredictNextHorizon(context.Background(), historySeries(20, 10, 2, 40))
	require.NoError(t, err)

	assert.Equal(t, fixed.UTC(), rec.GeneratedAt)
	assert.Equal(t, time.UTC, rec.GeneratedAt.Location())
}

func TestPredictNextHorizonLeadTimeOverride(t *testing.T) {
	s := historySeries(20, 10, 2, 40)
	for i := range s.Rows {
		s.Rows[i].Values[domain.ColLeadTimeDays] = 3
	}
	a := NewAdapter(constantModel(70), testBundle(5, 7, false), 0)

	rec, err := a.PredictNextHorizon(context.Background(), s)
	require.NoError(t, err)

	assert.InDelta(t, 3, rec.LeadTimeDays, 1e-9)
	assert.InDelta(t, 30, rec.Optimization.ReorderPoint, 1e-9)
	assert.False(t, rec.Optimization.NeedsReorder) // 40 > 30
}

func TestPredictNextHorizonLogTargetRoundTrip(t *testing.T) {
	// model trained on log1p targets emits log-space values; the record
	// must carry the unit-space demand back out
	a := NewAdapter(constantModel(math.Log1p(70)), testBundle(5, 7, true), 0)

	rec, err := a.PredictNextHorizon(context.Background(), historySeries(20, 10, 2, 40))
	require.NoError(t, err)
	assert.InDelta(t, 70, rec.HorizonDemand, 1e-9)
	assert.InDelta(t, 10, rec.ForecastDailyMean, 1e-9)
}

func TestPredictNextHorizonNegativeForecastClamped(t *testing.T) {
	a := NewAdapter(constantModel(-12), testBundle(5, 7, false), 0)

	rec, err := a.PredictNextHorizon(context.Background(), historySeries(20, 10, 2, 40))
	require.NoError(t, err)
	assert.Zero(t, rec.HorizonDemand)
}

func TestCallModelFailuresAreSkippable(t *testing.T) {
	window, err := NewAdapter(constantModel(0), testBundle(5, 7, false), 0).
		BuildLastWindow(historySeries(20, 10, 2, 40))
	require.NoError(t, err)

	cases := map[string]ForecastFunc{
		"model error": func(context.Context, [][]float64) (float64, error) {
			return 0, errors.New("boom")
		},
		"non-finite output": func(context.Context, [][]float64) (float64, error) {
			return math.NaN(), nil
		},
	}
	for name, model := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := callModel(context.Background(), model, window, 0)
			var modelErr *domain.ModelError
			require.ErrorAs(t, err, &modelErr)
			assert.True(t, domain.IsSkippable(err))
		})
	}
}

func TestCallModelTimeoutOnHungModel(t *testing.T) {
	hung := ForecastFunc(func(context.Context, [][]float64) (float64, error) {
		// deliberately ignores the context
		time.Sleep(500 * time.Millisecond)
		return 1, nil
	})

	start := time.Now()
	_, err := callModel(context.Background(), hung, nil, 20*time.Millisecond)
	elapsed := time.Since(start)

	var modelErr *domain.ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.True(t, domain.IsSkippable(err))
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestSeasonalNaiveModel(t *testing.T) {
	b := testBundle(7, 7, false)
	m := &SeasonalNaiveModel{Bundle: b}

	// identity scaler: the window carries raw demand 1..7
	window := make([][]float64, 7)
	for i := range window {
		window[i] = make([]float64, len(b.FeatureCols))
		window[i][0] = float64(i + 1)
	}

	got, err := m.Forecast(context.Background(), window)
	require.NoError(t, err)
	assert.InDelta(t, 28, got, 1e-9) // 1+2+...+7

	b.UseLogTarget = true
	got, err = m.Forecast(context.Background(), window)
	require.NoError(t, err)
	assert.InDelta(t, math.Log1p(28), got, 1e-9)
}

func TestSeasonalNaiveModelShortWindow(t *testing.T) {
	m := &SeasonalNaiveModel{Bundle: testBundle(7, 7, false)}
	_, err := m.Forecast(context.Background(), make([][]float64, 3))
	assert.Error(t, err)
}

func TestTrailingStats(t *testing.T) {
	mean, std := trailingStats([]float64{1, 1, 1, 10, 10, 10}, 3)
	assert.InDelta(t, 10, mean, 1e-9)
	assert.InDelta(t, 0, std, 1e-9)

	mean, _ = trailingStats([]float64{2, 4}, 10)
	assert.InDelta(t, 3, mean, 1e-9)
}
