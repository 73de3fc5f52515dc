package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEOQ(t *testing.T) {
	tests := []struct {
		name         string
		demand       float64
		orderCost    float64
		unitCost     float64
		holdingRate  float64
		want         float64
	}{
		{"reference values", 36500, 50, 2.0, 0.25, 2701.8512},
		{"zero demand", 0, 50, 2.0, 0.25, 0},
		{"negative demand", -10, 50, 2.0, 0.25, 0},
		{"zero unit cost", 36500, 50, 0, 0.25, 0},
		{"zero holding rate", 36500, 50, 2.0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEOQ(tt.demand, tt.orderCost, tt.unitCost, tt.holdingRate)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestCalculateSafetyStock(t *testing.T) {
	// z * sigma * sqrt(leadTime) * multiplier
	got := CalculateSafetyStock(4, 9, 1.65, 1.5)
	assert.InDelta(t, 1.65*4*3*1.5, got, 1e-9)

	assert.Zero(t, CalculateSafetyStock(0, 9, 1.65, 1.0))
	assert.Zero(t, CalculateSafetyStock(-1, 9, 1.65, 1.0))
	assert.Zero(t, CalculateSafetyStock(4, 0, 1.65, 1.0))
}

func TestCalculateReorderPoint(t *testing.T) {
	assert.InDelta(t, 90, CalculateReorderPoint(10, 7, 20), 1e-9)

	// Non-positive lead time floors at the safety stock alone.
	assert.InDelta(t, 20, CalculateReorderPoint(10, 0, 20), 1e-9)
	assert.InDelta(t, 20, CalculateReorderPoint(10, -3, 20), 1e-9)
}

func TestOptimizeInventoryBoundaryInclusive(t *testing.T) {
	eco := Economics{
		OrderCost:       50,
		HoldingCostRate: 0.25,
		LeadTimeDays:    7,
		ServiceLevelZ:   1.65,
	}
	table := DefaultPolicyTable()

	in := Input{
		DailyDemandMean: 10,
		DailyDemandStd:  0,
		UnitPrice:       2.0,
		Category:        "Beverages",
	}

	// std=0 means safety stock 0 and ROP = 10*7 = 70 exactly.
	in.CurrentStock = 70
	res, err := OptimizeInventory(in, eco, table)
	require.NoError(t, err)
	assert.True(t, res.NeedsReorder, "stock exactly at ROP must trigger a reorder")
	assert.InDelta(t, 70, res.ReorderPoint, 1e-9)
	assert.InDelta(t, res.EOQConstrained, res.OrderQuantity, 1e-9)

	in.CurrentStock = 70.01
	res, err = OptimizeInventory(in, eco, table)
	require.NoError(t, err)
	assert.False(t, res.NeedsReorder)
	assert.Zero(t, res.OrderQuantity)
	assert.Zero(t, res.TotalCost)
}

func TestOptimizeInventoryPerishabilityCap(t *testing.T) {
	eco := DefaultEconomics()
	eco.MaxOrderQty = 0 // isolate the perishability constraint
	table := DefaultPolicyTable()

	in := Input{
		DailyDemandMean: 10,
		DailyDemandStd:  3,
		UnitPrice:       1.0,
		CurrentStock:    5,
		Category:        "Seafood", // max 1 week of supply per order
	}
	res, err := OptimizeInventory(in, eco, table)
	require.NoError(t, err)

	assert.Greater(t, res.EOQ, res.EOQConstrained, "raw EOQ should exceed the perishability cap here")
	assert.InDelta(t, 10*7*1, res.EOQConstrained, 1e-9)
	assert.True(t, res.NeedsReorder)
}

func TestOptimizeInventoryDomainCaps(t *testing.T) {
	eco := DefaultEconomics() // caps ROP and order quantity at 100
	table := DefaultPolicyTable()

	in := Input{
		DailyDemandMean: 500,
		DailyDemandStd:  120,
		UnitPrice:       0.5,
		CurrentStock:    50,
		Category:        "Grains & Pulses",
	}
	res, err := OptimizeInventory(in, eco, table)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.ReorderPoint, 100.0)
	assert.LessOrEqual(t, res.EOQConstrained, 100.0)
	assert.True(t, res.NeedsReorder)
}

func TestOptimizeInventoryDegenerateDemand(t *testing.T) {
	eco := DefaultEconomics()
	table := DefaultPolicyTable()

	res, err := OptimizeInventory(Input{Category: "Dairy", UnitPrice: 3}, eco, table)
	require.NoError(t, err)
	assert.Zero(t, res.EOQ)
	assert.Zero(t, res.SafetyStock)
	assert.Zero(t, res.ReorderPoint)
	assert.InDelta(t, 999, res.DaysOfSupply, 1e-9)
	assert.False(t, math.IsNaN(res.OrderQuantity))
}

func TestPolicyTableUnknownCategory(t *testing.T) {
	table := PolicyTable{
		Policies: map[string]CategoryPolicy{
			"Dairy": {SafetyMultiplier: 1.4, MaxOrderWeeks: 3},
		},
	}

	_, err := table.Resolve("Electronics")
	assert.Error(t, err)

	err = table.Validate([]string{"Dairy", "Electronics", "Toys"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Electronics")
	assert.Contains(t, err.Error(), "Toys")

	fallback := CategoryPolicy{SafetyMultiplier: 1.0, MaxOrderWeeks: 8}
	table.Default = &fallback
	p, err := table.Resolve("Electronics")
	require.NoError(t, err)
	assert.Equal(t, fallback, p)
}

func TestPolicyTableValidateValues(t *testing.T) {
	table := PolicyTable{
		Policies: map[string]CategoryPolicy{
			"Dairy": {SafetyMultiplier: 0, MaxOrderWeeks: 3},
		},
	}
	assert.Error(t, table.Validate(nil))

	table.Policies["Dairy"] = CategoryPolicy{SafetyMultiplier: 1.2, MaxOrderWeeks: 0}
	assert.Error(t, table.Validate(nil))
}
