package optimizer

import (
	"math"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Economics holds the global inventory-control constants shared by every
// category.
type Economics struct {
	OrderCost        float64 // fixed cost per order
	HoldingCostRate  float64 // annual holding cost as a fraction of unit cost
	LeadTimeDays     float64 // days to receive an order
	ServiceLevelZ    float64 // standard-normal quantile for the service level
	ReviewPeriodDays float64 // buffer the order-up-to level covers beyond lead time
	MaxReorderPoint  float64 // domain ceiling on ROP, 0 disables
	MaxOrderQty      float64 // domain ceiling on EOQ, 0 disables
}

// DefaultEconomics mirrors the operating constants of the target business:
// $50 per order, 25% annual holding cost, 7-day lead time, 95% service level.
func DefaultEconomics() Economics {
	return Economics{
		OrderCost:        50.0,
		HoldingCostRate:  0.25,
		LeadTimeDays:     7,
		ServiceLevelZ:    1.65,
		ReviewPeriodDays: 7,
		MaxReorderPoint:  100,
		MaxOrderQty:      100,
	}
}

// CalculateEOQ returns the Economic Order Quantity
// sqrt(2*D*S / (H*C)) for annual demand D, order cost S, holding cost rate H
// and unit cost C. Degenerate inputs yield 0 rather than an error.
func CalculateEOQ(annualDemand, orderCost, unitCost, holdingCostRate float64) float64 {
	if annualDemand <= 0 || unitCost <= 0 {
		return 0
	}
	denominator := holdingCostRate * unitCost
	if denominator <= 0 {
		return 0
	}
	return math.Sqrt(2 * annualDemand * orderCost / denominator)
}

// CalculateSafetyStock returns z * sigma_daily * sqrt(leadTime) scaled by the
// category multiplier. Zero when the std or lead time is non-positive.
func CalculateSafetyStock(dailyStd, leadTimeDays, z, categoryMultiplier float64) float64 {
	if dailyStd <= 0 || leadTimeDays <= 0 {
		return 0
	}
	return z * dailyStd * math.Sqrt(leadTimeDays) * categoryMultiplier
}

// CalculateReorderPoint returns dailyMean*leadTime + safetyStock, floored by
// the safety stock alone when lead time is non-positive.
func CalculateReorderPoint(dailyMean, leadTimeDays, safetyStock float64) float64 {
	if dailyMean < 0 || leadTimeDays <= 0 {
		return safetyStock
	}
	return dailyMean*leadTimeDays + safetyStock
}

// Input carries the scalar statistics OptimizeInventory operates on. Demand
// statistics are daily; annualization happens inside.
type Input struct {
	DailyDemandMean float64
	DailyDemandStd  float64
	UnitPrice       float64
	CurrentStock    float64
	Category        string
}

// OptimizeInventory derives the full reorder recommendation for one product
// from its demand statistics, the global economics and its category policy.
func OptimizeInventory(in Input, eco Economics, policies PolicyTable) (domain.OptimizationResult, error) {
	policy, err := policies.Resolve(in.Category)
	if err != nil {
		return domain.OptimizationResult{}, err
	}

	annualDemand := in.DailyDemandMean * 365

	// 1. EOQ from the classic ordering-vs-holding tradeoff
	eoq := CalculateEOQ(annualDemand, eco.OrderCost, in.UnitPrice, eco.HoldingCostRate)

	// 2. Safety stock buffers lead-time demand variance at the service level
	safetyStock := CalculateSafetyStock(in.DailyDemandStd, eco.LeadTimeDays, eco.ServiceLevelZ, policy.SafetyMultiplier)

	// 3. Reorder point, capped at the configured domain ceiling
	reorderPoint := CalculateReorderPoint(in.DailyDemandMean, eco.LeadTimeDays, safetyStock)
	if eco.MaxReorderPoint > 0 {
		reorderPoint = math.Min(reorderPoint, eco.MaxReorderPoint)
	}

	// 4. Perishability cap: at most maxOrderWeeks weeks of demand per order
	eoqConstrained := eoq
	perishCap := in.DailyDemandMean * 7 * float64(policy.MaxOrderWeeks)
	if perishCap > 0 {
		eoqConstrained = math.Min(eoqConstrained, perishCap)
	}
	if eco.MaxOrderQty > 0 {
		eoqConstrained = math.Min(eoqConstrained, eco.MaxOrderQty)
	}

	// 5. Order-up-to level covers lead time plus the review period
	orderUpTo := reorderPoint + in.DailyDemandMean*eco.ReviewPeriodDays

	// 6. Reorder decision; the boundary is inclusive
	needsReorder := in.CurrentStock <= reorderPoint
	orderQty := 0.0
	if needsReorder {
		orderQty = math.Max(0, reorderPoint+eoqConstrained-in.CurrentStock)
	}

	// 7. Costs and coverage
	totalCost := orderQty * in.UnitPrice
	if needsReorder {
		totalCost += eco.OrderCost
	}
	daysOfSupply := 999.0
	if in.DailyDemandMean > 0 {
		daysOfSupply = in.CurrentStock / in.DailyDemandMean
	}

	return domain.OptimizationResult{
		DailyDemandMean:    in.DailyDemandMean,
		DailyDemandStd:     in.DailyDemandStd,
		AnnualDemand:       annualDemand,
		EOQ:                eoq,
		EOQConstrained:     eoqConstrained,
		SafetyStock:        safetyStock,
		ReorderPoint:       reorderPoint,
		OrderUpToLevel:     orderUpTo,
		CurrentStock:       math.Max(0, in.CurrentStock),
		NeedsReorder:       needsReorder,
		OrderQuantity:      orderQty,
		TotalCost:          totalCost,
		DaysOfSupply:       daysOfSupply,
		CategoryMultiplier: policy.SafetyMultiplier,
		MaxOrderWeeks:      policy.MaxOrderWeeks,
	}, nil
}
