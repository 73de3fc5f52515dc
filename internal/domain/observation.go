package domain

import (
	"sort"
	"time"
)

// Canonical column names produced by dataset normalization. Every stage after
// the normalizer addresses numeric values by these names.
const (
	ColDate              = "date"
	ColStoreID           = "store_id"
	ColProductID         = "product_id"
	ColInventoryLevel    = "inventory_level"
	ColUnitsSold         = "units_sold"
	ColUnitsOrdered      = "units_ordered"
	ColPrice             = "price"
	ColDiscount          = "discount"
	ColHolidayPromotion  = "holiday_promotion"
	ColCompetitorPricing = "competitor_pricing"
	ColSeasonality       = "seasonality"
	ColLeadTimeDays      = "lead_time_days"
)

// Row is one observation of a product's history on one date at one location.
// Numeric columns (raw and derived features alike) live in Values keyed by
// canonical column name; identity and categorical fields are typed.
type Row struct {
	Date        time.Time
	ProductID   string
	StoreID     string
	Seasonality string
	Values      map[string]float64
}

// Clone returns a deep copy of the row. Feature stages copy rather than
// mutate their input.
func (r Row) Clone() Row {
	values := make(map[string]float64, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	out := r
	out.Values = values
	return out
}

// SeriesKey identifies one time series: a product, optionally at one store.
type SeriesKey struct {
	ProductID string
	StoreID   string
}

// Series is a date-sorted run of observations for a single series key.
type Series struct {
	Key  SeriesKey
	Rows []Row
}

// Len returns the number of observations in the series.
func (s Series) Len() int { return len(s.Rows) }

// Demand returns the raw units_sold column in chronological order.
func (s Series) Demand() []float64 {
	out := make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Values[ColUnitsSold]
	}
	return out
}

// Category returns the categorical seasonality label of the series, taken
// from the latest observation.
func (s Series) Category() string {
	if len(s.Rows) == 0 {
		return ""
	}
	return s.Rows[len(s.Rows)-1].Seasonality
}

// GroupBySeries partitions rows into per-series slices. Each series comes
// back date-sorted regardless of input order, since lag and window stages
// depend on chronology; the series themselves are ordered by key for
// determinism.
func GroupBySeries(rows []Row, byStore bool) []Series {
	grouped := make(map[SeriesKey][]Row)
	for _, r := range rows {
		key := SeriesKey{ProductID: r.ProductID}
		if byStore {
			key.StoreID = r.StoreID
		}
		grouped[key] = append(grouped[key], r)
	}
	for _, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})
	}

	keys := make([]SeriesKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID < keys[j].ProductID
		}
		return keys[i].StoreID < keys[j].StoreID
	})

	series := make([]Series, 0, len(keys))
	for _, k := range keys {
		series = append(series, Series{Key: k, Rows: grouped[k]})
	}
	return series
}
