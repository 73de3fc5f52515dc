package features

import "github.com/andresuchdata/stockcast/internal/domain"

// BaseColumns lists the raw numeric observation columns fed to the model.
func BaseColumns() []string {
	return []string{
		domain.ColUnitsSold,
		domain.ColInventoryLevel,
		domain.ColUnitsOrdered,
		domain.ColPrice,
		domain.ColDiscount,
		domain.ColHolidayPromotion,
		domain.ColCompetitorPricing,
	}
}

// CalendarColumns lists the derived calendar features.
func CalendarColumns() []string {
	return []string{ColDayOfWeek, ColWeekOfYear, ColMonth, ColIsWeekend}
}

// LagColumns lists the derived lag and rolling features.
func LagColumns() []string {
	cols := make([]string, 0, len(demandLags)+len(rollingWindows))
	for _, lag := range demandLags {
		cols = append(cols, LagColumn(lag))
	}
	for _, window := range rollingWindows {
		cols = append(cols, RollColumn(window))
	}
	return cols
}

// TrainingColumns is the authoritative, ordered feature set built at
// training time. The order is fixed by construction, never by map iteration.
func TrainingColumns() []string {
	cols := BaseColumns()
	cols = append(cols, CalendarColumns()...)
	cols = append(cols, LagColumns()...)
	return cols
}

// Matrix reindexes rows against an ordered column list, producing one
// feature vector per row. Columns a row lacks are filled with zero, so an
// inference frame always matches the training-time geometry exactly.
func Matrix(rows []domain.Row, cols []string) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		vec := make([]float64, len(cols))
		for j, c := range cols {
			if v, ok := r.Values[c]; ok {
				vec[j] = v
			}
		}
		out[i] = vec
	}
	return out
}
