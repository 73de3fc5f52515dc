package main

import (
	"encoding/json"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/optimizer"
)

func optimizeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "daily-mean", Required: true, Usage: "Mean daily demand in units"},
		&cli.Float64Flag{Name: "daily-std", Usage: "Std of daily demand in units"},
		&cli.Float64Flag{Name: "price", Required: true, Usage: "Unit price"},
		&cli.Float64Flag{Name: "stock", Required: true, Usage: "Current stock on hand"},
		&cli.StringFlag{Name: "category", Value: "Snacks", Usage: "Product category for the policy table"},
		&cli.Float64Flag{Name: "order-cost", Value: 50, Usage: "Fixed cost per order"},
		&cli.Float64Flag{Name: "holding-rate", Value: 0.25, Usage: "Annual holding cost fraction"},
		&cli.Float64Flag{Name: "lead-time", Value: 7, Usage: "Lead time in days"},
		&cli.Float64Flag{Name: "service-z", Value: 1.65, Usage: "Service level z score"},
	}
}

// runOptimize is the quick what-if path: reorder economics for one product
// without touching a dataset or model.
func runOptimize(c *cli.Context) error {
	eco := optimizer.DefaultEconomics()
	eco.OrderCost = c.Float64("order-cost")
	eco.HoldingCostRate = c.Float64("holding-rate")
	eco.LeadTimeDays = c.Float64("lead-time")
	eco.ServiceLevelZ = c.Float64("service-z")

	result, err := optimizer.OptimizeInventory(optimizer.Input{
		DailyDemandMean: c.Float64("daily-mean"),
		DailyDemandStd:  c.Float64("daily-std"),
		UnitPrice:       c.Float64("price"),
		CurrentStock:    c.Float64("stock"),
		Category:        c.String("category"),
	}, eco, optimizer.DefaultPolicyTable())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
