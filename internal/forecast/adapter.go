package forecast

import (
	"context"
	"math"
	"time"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/features"
	"github.com/andresuchdata/stockcast/internal/optimizer"
)

// histStatsWindow is the minimum trailing span of raw demand used for the
// historical mean and std driving safety stock.
const histStatsWindow = 30

// Adapter runs one product's history through the frozen preprocessing
// bundle, calls the external model, and derives the reorder economics.
type Adapter struct {
	Model     Forecaster
	Bundle    *bundle.Preprocess
	Timeout   time.Duration
	Economics optimizer.Economics
	Policies  optimizer.PolicyTable

	now func() time.Time
}

// NewAdapter wires a model and bundle to the default economics and policy
// table. Callers override the exported fields before first use when the
// business constants differ.
func NewAdapter(model Forecaster, b *bundle.Preprocess, timeout time.Duration) *Adapter {
	return &Adapter{
		Model:     model,
		Bundle:    b,
		Timeout:   timeout,
		Economics: optimizer.DefaultEconomics(),
		Policies:  optimizer.DefaultPolicyTable(),
		now:       time.Now,
	}
}

// BuildLastWindow engineers features over the series history, reindexes
// against the bundle's training columns and returns the scaled trailing
// lookback window. Warm-up rows with incomplete lag features are dropped
// first; fewer than lookback usable rows is an InsufficientHistoryError.
func (a *Adapter) BuildLastWindow(s domain.Series) ([][]float64, error) {
	rows := features.AddCalendarFeatures(s.Rows)
	rows, err := features.AddLagFeatures(rows, false)
	if err != nil {
		return nil, err
	}
	usable := features.DropIncomplete(rows, a.Bundle.FeatureCols)

	lookback := a.Bundle.Lookback
	if len(usable) < lookback {
		return nil, &domain.InsufficientHistoryError{Have: len(usable), Lookback: lookback}
	}

	scaled, err := a.Bundle.Scaler.Transform(features.Matrix(usable, a.Bundle.FeatureCols))
	if err != nil {
		return nil, err
	}
	return scaled[len(scaled)-lookback:], nil
}

// PredictNextHorizon produces the full forecast record for one series: the
// model's horizon-demand estimate plus the optimizer's reorder
// recommendation. The series must be date-sorted and non-empty.
func (a *Adapter) PredictNextHorizon(ctx context.Context, s domain.Series) (*domain.ForecastRecord, error) {
	window, err := a.BuildLastWindow(s)
	if err != nil {
		return nil, err
	}

	horizonDemand, err := callModel(ctx, a.Model, window, a.Timeout)
	if err != nil {
		return nil, err
	}
	if a.Bundle.UseLogTarget {
		horizonDemand = math.Expm1(horizonDemand)
	}
	horizonDemand = math.Max(0, horizonDemand)

	horizon := a.Bundle.Horizon
	forecastMean := horizonDemand / float64(horizon)

	histMean, histStd := trailingStats(s.Demand(), maxInt(histStatsWindow, a.Bundle.Lookback))

	last := s.Rows[len(s.Rows)-1]
	eco := a.Economics
	if lt := last.Values[domain.ColLeadTimeDays]; lt > 0 {
		eco.LeadTimeDays = lt
	}

	opt, err := optimizer.OptimizeInventory(optimizer.Input{
		DailyDemandMean: forecastMean,
		DailyDemandStd:  histStd,
		UnitPrice:       last.Values[domain.ColPrice],
		CurrentStock:    last.Values[domain.ColInventoryLevel],
		Category:        s.Category(),
	}, eco, a.Policies)
	if err != nil {
		return nil, err
	}

	return &domain.ForecastRecord{
		ProductID:         s.Key.ProductID,
		StoreID:           s.Key.StoreID,
		Category:          s.Category(),
		GeneratedAt:       a.clock().UTC(),
		HorizonDays:       horizon,
		HorizonDemand:     horizonDemand,
		ForecastDailyMean: forecastMean,
		HistDailyMean:     histMean,
		HistDailyStd:      histStd,
		LeadTimeDays:      eco.LeadTimeDays,
		UnitPrice:         last.Values[domain.ColPrice],
		Optimization:      opt,
	}, nil
}

func (a *Adapter) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// trailingStats returns mean and population std of the last n values.
func trailingStats(values []float64, n int) (mean, std float64) {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(values)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
