package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Normalize maps a raw table onto the canonical schema: column names are
// canonicalized, required columns verified, dates parsed strictly, numeric
// cells parsed with currency/thousands markup stripped, declared optional
// columns filled with their defaults, and the result sorted by
// (product, store, date). The transform is pure; a row-drop decision on bad
// data belongs to the caller, so an unparsable date fails the whole table.
func Normalize(table RawTable, schema Schema) ([]domain.Row, error) {
	normalized := make([]string, len(table.Columns))
	index := make(map[string]int, len(table.Columns))
	for i, col := range table.Columns {
		name := NormalizeColumn(col)
		normalized[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range schema.Required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &domain.SchemaError{Missing: missing}
	}

	rows := make([]domain.Row, 0, len(table.Records))
	for n, record := range table.Records {
		if len(record) != len(table.Columns) {
			return nil, &domain.SchemaError{Detail: fmt.Sprintf("record %d has %d cells, header has %d", n, len(record), len(table.Columns))}
		}

		date, err := parseDate(record[index[domain.ColDate]], schema.DateFormats)
		if err != nil {
			return nil, &domain.SchemaError{Detail: fmt.Sprintf("record %d: %v", n, err)}
		}

		row := domain.Row{
			Date:        date,
			ProductID:   strings.TrimSpace(record[index[domain.ColProductID]]),
			StoreID:     strings.TrimSpace(record[index[domain.ColStoreID]]),
			Seasonality: strings.TrimSpace(record[index[domain.ColSeasonality]]),
			Values:      make(map[string]float64),
		}

		for i, name := range normalized {
			if isTextColumn(name) || index[name] != i {
				continue
			}
			row.Values[name] = parseNumeric(record[i])
		}
		for _, opt := range schema.Optional {
			if _, ok := index[opt.Name]; !ok {
				row.Values[opt.Name] = opt.Default
			}
		}

		// flow quantities cannot be negative
		if v := row.Values[domain.ColUnitsSold]; v < 0 {
			row.Values[domain.ColUnitsSold] = 0
		}

		rows = append(rows, row)
	}

	sortRows(rows)
	return rows, nil
}

func sortRows(rows []domain.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		if rows[i].StoreID != rows[j].StoreID {
			return rows[i].StoreID < rows[j].StoreID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
}

func parseDate(cell string, formats []string) (t time.Time, err error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return t, fmt.Errorf("empty date")
	}
	for _, layout := range formats {
		if t, err = time.Parse(layout, cell); err == nil {
			return t, nil
		}
	}
	return t, fmt.Errorf("unparsable date %q", cell)
}

// parseNumeric tolerates currency and percent markup ("$4.50", "1,200", "5%").
// Anything that still fails to parse coerces to 0.
func parseNumeric(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0
	}
	cell = strings.NewReplacer("$", "", ",", "", "%", "").Replace(cell)
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
