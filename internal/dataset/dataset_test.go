package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

var messyHeader = []string{
	"Date", "Store ID", "Product ID", "Inventory Level", "Units Sold",
	"Units Ordered", "Price", "Discount", "Holiday/Promotion",
	"Competitor Pricing", "Seasonality",
}

func record(date, store, product, units string, rest ...string) []string {
	row := []string{date, store, product, "100", units, "5", "$4.50", "0", "1", "4.20", "Dairy"}
	copy(row[5:], rest)
	return row
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Holiday/Promotion", "holiday_promotion"},
		{"Units Sold", "units_sold"},
		{"  Competitor   Pricing ", "competitor_pricing"},
		{"PRODUCT-ID", "product_id"},
		{"__date__", "date"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeColumn(tt.in), tt.in)
	}
}

func TestNormalizeMapsMessyColumns(t *testing.T) {
	table := RawTable{
		Columns: messyHeader,
		Records: [][]string{
			record("2024-03-02", "S1", "P1", "12"),
			record("2024-03-01", "S1", "P1", "7"),
		},
	}

	rows, err := Normalize(table, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// sorted ascending by date within the series
	assert.Equal(t, "2024-03-01", rows[0].Date.Format("2006-01-02"))
	assert.InDelta(t, 7, rows[0].Values[domain.ColUnitsSold], 1e-9)
	assert.InDelta(t, 4.5, rows[0].Values[domain.ColPrice], 1e-9, "currency markup must be stripped")
	assert.Equal(t, "Dairy", rows[0].Seasonality)

	// declared optional column resolved to its default
	_, ok := rows[0].Values["lead_time_days"]
	assert.True(t, ok)
}

func TestNormalizeMissingColumns(t *testing.T) {
	table := RawTable{
		Columns: []string{"Date", "Product ID", "Units Sold"},
		Records: [][]string{{"2024-03-01", "P1", "3"}},
	}

	_, err := Normalize(table, DefaultSchema())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Missing, "store_id")
	assert.Contains(t, schemaErr.Missing, "seasonality")
	assert.NotContains(t, schemaErr.Missing, "units_sold")
	assert.False(t, domain.IsSkippable(err), "schema errors are fatal, not skippable")
}

func TestNormalizeUnparsableDateFailsWholeTable(t *testing.T) {
	table := RawTable{
		Columns: messyHeader,
		Records: [][]string{
			record("2024-03-01", "S1", "P1", "3"),
			record("not-a-date", "S1", "P1", "4"),
		},
	}

	_, err := Normalize(table, DefaultSchema())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Error(), "not-a-date")
}

func TestNormalizeSortsByProductStoreDate(t *testing.T) {
	table := RawTable{
		Columns: messyHeader,
		Records: [][]string{
			record("2024-03-01", "S2", "P2", "1"),
			record("2024-03-01", "S1", "P2", "1"),
			record("2024-03-02", "S1", "P1", "1"),
			record("2024-03-01", "S1", "P1", "1"),
		},
	}

	rows, err := Normalize(table, DefaultSchema())
	require.NoError(t, err)

	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.ProductID + "/" + r.StoreID + "/" + r.Date.Format("01-02")
	}
	assert.Equal(t, []string{"P1/S1/03-01", "P1/S1/03-02", "P2/S1/03-01", "P2/S2/03-01"}, got)
}

func TestNormalizeClampsNegativeDemand(t *testing.T) {
	table := RawTable{
		Columns: messyHeader,
		Records: [][]string{record("2024-03-01", "S1", "P1", "-9")},
	}
	rows, err := Normalize(table, DefaultSchema())
	require.NoError(t, err)
	assert.Zero(t, rows[0].Values[domain.ColUnitsSold])
}

func TestAggregateDuplicates(t *testing.T) {
	table := RawTable{
		Columns: messyHeader,
		Records: [][]string{
			{"2024-03-01", "S1", "P1", "80", "3", "2", "4.00", "0.1", "0", "4.10", "Dairy"},
			{"2024-03-01", "S1", "P1", "60", "5", "4", "6.00", "0.3", "1", "4.30", "Dairy"},
			{"2024-03-02", "S1", "P1", "55", "2", "0", "5.00", "0.0", "0", "4.00", "Dairy"},
		},
	}
	rows, err := Normalize(table, DefaultSchema())
	require.NoError(t, err)

	out := AggregateDuplicates(rows, true)
	require.Len(t, out, 2)

	merged := out[0]
	assert.InDelta(t, 8, merged.Values[domain.ColUnitsSold], 1e-9, "demand sums")
	assert.InDelta(t, 6, merged.Values[domain.ColUnitsOrdered], 1e-9, "orders sum")
	assert.InDelta(t, 5.0, merged.Values[domain.ColPrice], 1e-9, "price averages")
	assert.InDelta(t, 0.2, merged.Values[domain.ColDiscount], 1e-9)
	assert.InDelta(t, 1, merged.Values[domain.ColHolidayPromotion], 1e-9, "promotion takes max")
	assert.InDelta(t, 60, merged.Values[domain.ColInventoryLevel], 1e-9, "stock keeps last snapshot")
	assert.Equal(t, "Dairy", merged.Seasonality)
}

func TestReadCSV(t *testing.T) {
	in := strings.NewReader("Date,Store ID,Product ID\n2024-03-01,S1,P1\n2024-03-02,S1,P1\n")
	table, err := ReadCSV(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Store ID", "Product ID"}, table.Columns)
	assert.Len(t, table.Records, 2)
}
