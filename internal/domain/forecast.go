package domain

import "time"

// OptimizationResult is the per-product economic output of the inventory
// optimizer. All quantities are units unless noted.
type OptimizationResult struct {
	DailyDemandMean    float64 `json:"daily_demand_mean" db:"daily_demand_mean"`
	DailyDemandStd     float64 `json:"daily_demand_std" db:"daily_demand_std"`
	AnnualDemand       float64 `json:"annual_demand" db:"annual_demand"`
	EOQ                float64 `json:"eoq" db:"eoq"`
	EOQConstrained     float64 `json:"eoq_constrained" db:"eoq_constrained"`
	SafetyStock        float64 `json:"safety_stock" db:"safety_stock"`
	ReorderPoint       float64 `json:"reorder_point" db:"reorder_point"`
	OrderUpToLevel     float64 `json:"order_up_to_level" db:"order_up_to_level"`
	CurrentStock       float64 `json:"current_stock" db:"current_stock"`
	NeedsReorder       bool    `json:"needs_reorder" db:"needs_reorder"`
	OrderQuantity      float64 `json:"order_quantity" db:"order_quantity"`
	TotalCost          float64 `json:"total_cost" db:"total_cost"`
	DaysOfSupply       float64 `json:"days_of_supply" db:"days_of_supply"`
	CategoryMultiplier float64 `json:"category_multiplier" db:"category_multiplier"`
	MaxOrderWeeks      int     `json:"max_order_weeks" db:"max_order_weeks"`
}

// ForecastRecord is the full per-product forecast output: the model's
// horizon-demand estimate, the historical statistics used for safety stock,
// and the derived reorder economics.
type ForecastRecord struct {
	ProductID         string    `json:"product_id" db:"product_id"`
	StoreID           string    `json:"store_id,omitempty" db:"store_id"`
	Category          string    `json:"category" db:"category"`
	GeneratedAt       time.Time `json:"generated_at" db:"generated_at"`
	HorizonDays       int       `json:"horizon_days" db:"horizon_days"`
	HorizonDemand     float64   `json:"horizon_demand" db:"horizon_demand"`
	ForecastDailyMean float64   `json:"forecast_daily_mean" db:"forecast_daily_mean"`
	HistDailyMean     float64   `json:"hist_daily_mean" db:"hist_daily_mean"`
	HistDailyStd      float64   `json:"hist_daily_std" db:"hist_daily_std"`
	LeadTimeDays      float64   `json:"lead_time_days" db:"lead_time_days"`
	UnitPrice         float64   `json:"unit_price" db:"unit_price"`

	Optimization OptimizationResult `json:"optimization"`
}

// SkipEntry records one product excluded from a batch run and why.
type SkipEntry struct {
	ProductID string `json:"product_id" db:"product_id"`
	Reason    string `json:"reason" db:"reason"`
}

// BatchResult aggregates a whole-catalog run: partial results plus an
// explicit inventory of what was skipped. A batch always completes.
type BatchResult struct {
	Predictions map[string]*ForecastRecord `json:"predictions"`
	Skipped     []SkipEntry                `json:"skipped_products"`
	StartedAt   time.Time                  `json:"started_at"`
	Duration    time.Duration              `json:"duration"`
}

// ResultsFilter narrows forecast-result queries. Zero values mean no
// constraint.
type ResultsFilter struct {
	Category     string   `json:"category,omitempty" form:"category"`
	StoreID      string   `json:"store_id,omitempty" form:"store_id"`
	ProductIDs   []string `json:"product_ids,omitempty" form:"product_ids"`
	NeedsReorder *bool    `json:"needs_reorder,omitempty" form:"needs_reorder"`
}

// ReorderCount returns how many products in the batch need a reorder.
func (b *BatchResult) ReorderCount() int {
	n := 0
	for _, rec := range b.Predictions {
		if rec.Optimization.NeedsReorder {
			n++
		}
	}
	return n
}
