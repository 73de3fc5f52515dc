package sequence

import (
	"math"
	"time"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/features"
)

// Dataset is a stack of supervised samples: X is (samples, lookback,
// features), Y the horizon-demand targets.
type Dataset struct {
	X [][][]float64
	Y []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// MakeSupervised builds training windows from the training partition and
// returns the preprocessing bundle that freezes the feature columns, the
// scaler and the window geometry. The scaler is fitted here, on the pooled
// training rows only; validation and inference data must go through
// ApplyBundle so the exact same parameters are reused. Fitting again on any
// other partition is the data-leakage bug this split exists to prevent.
func MakeSupervised(cfg Config, train []domain.Series) (*Dataset, *bundle.Preprocess, error) {
	cols := features.TrainingColumns()

	var pooled [][]float64
	for _, s := range train {
		pooled = append(pooled, features.Matrix(s.Rows, cols)...)
	}
	if len(pooled) == 0 {
		return nil, nil, &domain.InsufficientDataError{Required: cfg.Lookback + cfg.Horizon, Series: len(train)}
	}

	var scaler bundle.StandardScaler
	if err := scaler.Fit(pooled); err != nil {
		return nil, nil, err
	}

	b := &bundle.Preprocess{
		FeatureCols:  cols,
		Scaler:       scaler,
		Lookback:     cfg.Lookback,
		Horizon:      cfg.Horizon,
		UseLogTarget: cfg.UseLogTarget,
		CreatedAt:    time.Now().UTC(),
	}

	ds, err := ApplyBundle(b, train)
	if err != nil {
		return nil, nil, err
	}
	return ds, b, nil
}

// ApplyBundle slides supervised windows over each series using an existing
// bundle. Windows never cross a series boundary; series shorter than
// lookback+horizon are skipped silently (expected, not exceptional), but a
// result with zero windows overall is an error.
func ApplyBundle(b *bundle.Preprocess, series []domain.Series) (*Dataset, error) {
	ds := &Dataset{}
	L, H := b.Lookback, b.Horizon

	for _, s := range series {
		if s.Len() < L+H {
			continue
		}
		scaled, err := b.Scaler.Transform(features.Matrix(s.Rows, b.FeatureCols))
		if err != nil {
			return nil, err
		}
		demand := s.Demand()

		for t := L; t <= s.Len()-H; t++ {
			window := make([][]float64, L)
			copy(window, scaled[t-L:t])

			target := 0.0
			for _, d := range demand[t : t+H] {
				target += d
			}
			if b.UseLogTarget {
				target = math.Log1p(target)
			}

			ds.X = append(ds.X, window)
			ds.Y = append(ds.Y, target)
		}
	}

	if ds.Len() == 0 {
		return nil, &domain.InsufficientDataError{Required: L + H, Series: len(series)}
	}
	return ds, nil
}
