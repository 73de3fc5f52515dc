package dataset

import (
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type dupKey struct {
	product string
	store   string
	day     time.Time
}

// AggregateDuplicates resolves multiple observations for the same
// (series, date) into one row: flow quantities are summed, rate quantities
// averaged, the promotion flag takes its max, categorical labels keep the
// first value and stock levels keep the last snapshot. Output stays sorted
// by (product, store, date).
func AggregateDuplicates(rows []domain.Row, byStore bool) []domain.Row {
	order := make([]dupKey, 0, len(rows))
	groups := make(map[dupKey][]domain.Row)

	for _, r := range rows {
		key := dupKey{product: r.ProductID, day: r.Date.Truncate(24 * time.Hour)}
		if byStore {
			key.store = r.StoreID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([]domain.Row, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		out = append(out, mergeGroup(group))
	}

	sortRows(out)
	return out
}

func mergeGroup(group []domain.Row) domain.Row {
	merged := group[0].Clone()

	columns := make(map[string]struct{})
	for _, r := range group {
		for name := range r.Values {
			columns[name] = struct{}{}
		}
	}

	for name := range columns {
		var sum, max, last float64
		count := 0
		for _, r := range group {
			v, ok := r.Values[name]
			if !ok {
				continue
			}
			sum += v
			if count == 0 || v > max {
				max = v
			}
			last = v
			count++
		}
		if count == 0 {
			continue
		}
		switch name {
		case domain.ColUnitsSold, domain.ColUnitsOrdered:
			merged.Values[name] = sum
		case domain.ColHolidayPromotion:
			merged.Values[name] = max
		case domain.ColInventoryLevel:
			merged.Values[name] = last
		default:
			// rate quantities (price, discount, competitor pricing, covariates)
			merged.Values[name] = sum / float64(count)
		}
	}
	return merged
}
