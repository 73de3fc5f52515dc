package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/domain"
)

// SeasonalNaiveModel is the no-ML fallback and benchmark: next week's
// demand is last week's demand, day by day. It reads the demand column out
// of the scaled window and undoes the scaling with the bundle's own
// parameters, so it slots in anywhere a trained model does.
type SeasonalNaiveModel struct {
	Bundle *bundle.Preprocess
	Season int // cycle length in days, 7 when zero
}

// Forecast sums the trailing season of demand cyclically over the horizon.
func (m *SeasonalNaiveModel) Forecast(_ context.Context, window [][]float64) (float64, error) {
	season := m.Season
	if season <= 0 {
		season = 7
	}
	if len(window) < season {
		return 0, fmt.Errorf("window of %d rows is shorter than season %d", len(window), season)
	}
	demandIdx, err := m.demandIndex()
	if err != nil {
		return 0, err
	}

	scaler := m.Bundle.Scaler
	cycle := make([]float64, season)
	for i := 0; i < season; i++ {
		scaled := window[len(window)-season+i][demandIdx]
		cycle[i] = math.Max(0, scaled*scaler.Std[demandIdx]+scaler.Mean[demandIdx])
	}

	total := 0.0
	for d := 0; d < m.Bundle.Horizon; d++ {
		total += cycle[d%season]
	}
	if m.Bundle.UseLogTarget {
		total = math.Log1p(total)
	}
	return total, nil
}

func (m *SeasonalNaiveModel) demandIndex() (int, error) {
	for i, c := range m.Bundle.FeatureCols {
		if c == domain.ColUnitsSold {
			return i, nil
		}
	}
	return 0, fmt.Errorf("bundle has no %s feature column", domain.ColUnitsSold)
}
