package features

import (
	"fmt"
	"math"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Lag and rolling windows applied to demand within each series.
var (
	demandLags     = []int{1, 7, 14, 28}
	rollingWindows = []int{7, 14}
)

// LagColumn names the lag-k demand feature.
func LagColumn(lag int) string {
	return fmt.Sprintf("%s_lag_%d", domain.ColUnitsSold, lag)
}

// RollColumn names the trailing rolling-mean feature for the given window.
func RollColumn(window int) string {
	return fmt.Sprintf("%s_roll_mean_%d", domain.ColUnitsSold, window)
}

// AddLagFeatures computes lag-1/7/14/28 demand and 7/14-day trailing rolling
// means, strictly within each series. The rolling windows are shifted by one
// day so an observation never contributes to its own feature. Rows without
// enough history get NaN; imputation or dropping is the caller's decision.
func AddLagFeatures(rows []domain.Row, byStore bool) ([]domain.Row, error) {
	for _, r := range rows {
		if _, ok := r.Values[domain.ColUnitsSold]; !ok {
			return nil, &domain.SchemaError{Missing: []string{domain.ColUnitsSold}}
		}
	}

	out := make([]domain.Row, 0, len(rows))
	for _, series := range domain.GroupBySeries(rows, byStore) {
		demand := series.Demand()
		for i, r := range series.Rows {
			row := r.Clone()

			for _, lag := range demandLags {
				if i-lag >= 0 {
					row.Values[LagColumn(lag)] = demand[i-lag]
				} else {
					row.Values[LagColumn(lag)] = math.NaN()
				}
			}

			for _, window := range rollingWindows {
				// mean of demand[i-window .. i-1]
				if i-window >= 0 {
					sum := 0.0
					for j := i - window; j < i; j++ {
						sum += demand[j]
					}
					row.Values[RollColumn(window)] = sum / float64(window)
				} else {
					row.Values[RollColumn(window)] = math.NaN()
				}
			}

			out = append(out, row)
		}
	}
	return out, nil
}

// DropIncomplete removes rows carrying NaN in any of the given columns.
// Used after lag generation to discard series warm-up rows.
func DropIncomplete(rows []domain.Row, cols []string) []domain.Row {
	out := rows[:0:0]
	for _, r := range rows {
		keep := true
		for _, c := range cols {
			if v, ok := r.Values[c]; ok && math.IsNaN(v) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}
