// Package forecast bridges engineered feature history to the external
// demand model and turns its horizon estimate into a full reorder
// recommendation.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Forecaster is the trained demand model. It receives one scaled lookback
// window, shaped (lookback, features), and returns the estimated demand sum
// over the training horizon. The model is a black box; only this contract
// is assumed.
type Forecaster interface {
	Forecast(ctx context.Context, window [][]float64) (float64, error)
}

// ForecastFunc adapts a plain function to the Forecaster interface.
type ForecastFunc func(ctx context.Context, window [][]float64) (float64, error)

func (f ForecastFunc) Forecast(ctx context.Context, window [][]float64) (float64, error) {
	return f(ctx, window)
}

// callModel invokes the model under a deadline. The call runs in its own
// goroutine so a model that ignores the context still cannot stall the
// caller; any failure, timeout or non-finite output comes back as a
// ModelError, which batch processing treats as a per-product skip.
func callModel(ctx context.Context, model Forecaster, window [][]float64, timeout time.Duration) (float64, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		value float64
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := model.Forecast(ctx, window)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return 0, &domain.ModelError{Err: out.err}
		}
		if math.IsNaN(out.value) || math.IsInf(out.value, 0) {
			return 0, &domain.ModelError{Err: fmt.Errorf("non-finite forecast %v", out.value)}
		}
		return out.value, nil
	case <-ctx.Done():
		return 0, &domain.ModelError{Err: ctx.Err()}
	}
}
