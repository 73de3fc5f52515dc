package features

import "github.com/andresuchdata/stockcast/internal/domain"

// Derived feature column names.
const (
	ColDayOfWeek  = "day_of_week"
	ColWeekOfYear = "week_of_year"
	ColMonth      = "month"
	ColIsWeekend  = "is_weekend"
)

// AddCalendarFeatures derives day-of-week (Monday=0), ISO week-of-year,
// month and a weekend flag from the date column alone. Pure and stateless;
// input rows are not mutated.
func AddCalendarFeatures(rows []domain.Row) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		row := r.Clone()

		dow := (int(r.Date.Weekday()) + 6) % 7
		_, week := r.Date.ISOWeek()

		row.Values[ColDayOfWeek] = float64(dow)
		row.Values[ColWeekOfYear] = float64(week)
		row.Values[ColMonth] = float64(int(r.Date.Month()))
		if dow >= 5 {
			row.Values[ColIsWeekend] = 1
		} else {
			row.Values[ColIsWeekend] = 0
		}

		out[i] = row
	}
	return out
}
