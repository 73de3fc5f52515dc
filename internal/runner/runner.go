// Package runner executes whole-catalog forecast batches: every series gets
// its shot at a recommendation, per-series failures become skip entries, and
// only dataset-wide problems abort the run.
package runner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// Config bounds the batch concurrency.
type Config struct {
	Workers          int   // concurrent series pipelines
	ModelConcurrency int64 // concurrent in-flight model calls, 0 = unbounded
}

// DefaultConfig allows four series pipelines with at most two model calls
// in flight.
func DefaultConfig() Config {
	return Config{Workers: 4, ModelConcurrency: 2}
}

// Runner drives the per-series forecast pipeline over a normalized dataset.
type Runner struct {
	adapter *forecast.Adapter
	cfg     Config
}

// New wires a forecast adapter into a batch runner. When the config caps
// model concurrency the adapter's model is wrapped with a semaphore, so the
// bound holds no matter how many workers run.
func New(adapter *forecast.Adapter, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ModelConcurrency > 0 {
		adapter.Model = &throttledModel{
			inner: adapter.Model,
			sem:   semaphore.NewWeighted(cfg.ModelConcurrency),
		}
	}
	return &Runner{adapter: adapter, cfg: cfg}
}

// RunTable normalizes a raw table and forecasts every series in it. Schema
// problems fail the whole run; everything after normalization degrades to
// per-series skips.
func (r *Runner) RunTable(ctx context.Context, table dataset.RawTable, schema dataset.Schema) (*domain.BatchResult, error) {
	rows, err := dataset.Normalize(table, schema)
	if err != nil {
		return nil, err
	}
	rows = dataset.AggregateDuplicates(rows, schema.ByStore)
	return r.Run(ctx, domain.GroupBySeries(rows, schema.ByStore))
}

// Run forecasts every series and assembles the batch result. A skippable
// failure on one series is recorded and never stops the rest; the returned
// error is non-nil only for fatal conditions such as an unknown category
// with no default policy, or a canceled context.
func (r *Runner) Run(ctx context.Context, series []domain.Series) (*domain.BatchResult, error) {
	if err := r.adapter.Policies.Validate(observedCategories(series)); err != nil {
		return nil, err
	}

	result := &domain.BatchResult{
		Predictions: make(map[string]*domain.ForecastRecord, len(series)),
		StartedAt:   time.Now().UTC(),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, s := range series {
		s := s
		g.Go(func() error {
			rec, err := r.adapter.PredictNextHorizon(ctx, s)
			if err != nil {
				if domain.IsSkippable(err) {
					logger.Log.Warn().
						Str("product_id", s.Key.ProductID).
						Str("store_id", s.Key.StoreID).
						Err(err).
						Msg("series skipped")
					mu.Lock()
					result.Skipped = append(result.Skipped, domain.SkipEntry{
						ProductID: seriesLabel(s.Key),
						Reason:    err.Error(),
					})
					mu.Unlock()
					return nil
				}
				return err
			}

			mu.Lock()
			result.Predictions[seriesLabel(s.Key)] = rec
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(result.StartedAt)
	logger.Log.Info().
		Int("series", len(series)).
		Int("predicted", len(result.Predictions)).
		Int("skipped", len(result.Skipped)).
		Int("reorders", result.ReorderCount()).
		Dur("duration", result.Duration).
		Msg("batch complete")
	return result, nil
}

// seriesLabel keys the prediction map: product id alone, or product@store
// when the series is store scoped.
func seriesLabel(key domain.SeriesKey) string {
	if key.StoreID == "" {
		return key.ProductID
	}
	return key.ProductID + "@" + key.StoreID
}

func observedCategories(series []domain.Series) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range series {
		c := s.Category()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// throttledModel bounds in-flight model calls with a weighted semaphore.
type throttledModel struct {
	inner forecast.Forecaster
	sem   *semaphore.Weighted
}

func (m *throttledModel) Forecast(ctx context.Context, window [][]float64) (float64, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer m.sem.Release(1)
	return m.inner.Forecast(ctx, window)
}
