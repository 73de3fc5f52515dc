package dataset

import (
	"regexp"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// RawTable is an unnormalized tabular input: arbitrary column spellings,
// string cells. CSV files and spreadsheet exports both land here.
type RawTable struct {
	Columns []string
	Records [][]string
}

// OptionalColumn declares a numeric column the pipeline can work without,
// together with the value used when the source omits it. Resolved once here,
// so downstream stages never test for column presence.
type OptionalColumn struct {
	Name    string
	Default float64
}

// Schema fixes the canonical column contract for normalization.
type Schema struct {
	Required    []string
	Optional    []OptionalColumn
	DateFormats []string
	ByStore     bool // series key includes store_id
}

// DefaultSchema returns the canonical inventory-history schema.
func DefaultSchema() Schema {
	return Schema{
		Required: []string{
			domain.ColDate,
			domain.ColStoreID,
			domain.ColProductID,
			domain.ColInventoryLevel,
			domain.ColUnitsSold,
			domain.ColUnitsOrdered,
			domain.ColPrice,
			domain.ColDiscount,
			domain.ColHolidayPromotion,
			domain.ColCompetitorPricing,
			domain.ColSeasonality,
		},
		Optional: []OptionalColumn{
			{Name: domain.ColLeadTimeDays, Default: 0},
		},
		DateFormats: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			time.RFC3339,
			"01/02/2006",
			"2006/01/02",
		},
		ByStore: true,
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeColumn canonicalizes a column name: lower-case, any run of
// non-alphanumeric characters collapsed to a single underscore, leading and
// trailing underscores stripped. "Holiday/Promotion" -> "holiday_promotion".
func NormalizeColumn(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	col = nonAlnum.ReplaceAllString(col, "_")
	return strings.Trim(col, "_")
}

// identity and categorical columns are not parsed as numbers
func isTextColumn(name string) bool {
	switch name {
	case domain.ColDate, domain.ColStoreID, domain.ColProductID, domain.ColSeasonality:
		return true
	}
	return false
}
