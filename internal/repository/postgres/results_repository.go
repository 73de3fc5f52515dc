package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type resultsRepository struct {
	db *DB
}

func NewResultsRepository(db *DB) *resultsRepository {
	return &resultsRepository{db: db}
}

// resultRow flattens a ForecastRecord and its optimization for storage.
type resultRow struct {
	ProductID         string    `db:"product_id"`
	StoreID           string    `db:"store_id"`
	Category          string    `db:"category"`
	GeneratedAt       time.Time `db:"generated_at"`
	HorizonDays       int       `db:"horizon_days"`
	HorizonDemand     float64   `db:"horizon_demand"`
	ForecastDailyMean float64   `db:"forecast_daily_mean"`
	HistDailyMean     float64   `db:"hist_daily_mean"`
	HistDailyStd      float64   `db:"hist_daily_std"`
	LeadTimeDays      float64   `db:"lead_time_days"`
	UnitPrice         float64   `db:"unit_price"`

	DailyDemandMean    float64 `db:"daily_demand_mean"`
	DailyDemandStd     float64 `db:"daily_demand_std"`
	AnnualDemand       float64 `db:"annual_demand"`
	EOQ                float64 `db:"eoq"`
	EOQConstrained     float64 `db:"eoq_constrained"`
	SafetyStock        float64 `db:"safety_stock"`
	ReorderPoint       float64 `db:"reorder_point"`
	OrderUpToLevel     float64 `db:"order_up_to_level"`
	CurrentStock       float64 `db:"current_stock"`
	NeedsReorder       bool    `db:"needs_reorder"`
	OrderQuantity      float64 `db:"order_quantity"`
	TotalCost          float64 `db:"total_cost"`
	DaysOfSupply       float64 `db:"days_of_supply"`
	CategoryMultiplier float64 `db:"category_multiplier"`
	MaxOrderWeeks      int     `db:"max_order_weeks"`
}

func (r resultRow) toDomain() domain.ForecastRecord {
	return domain.ForecastRecord{
		ProductID:         r.ProductID,
		StoreID:           r.StoreID,
		Category:          r.Category,
		GeneratedAt:       r.GeneratedAt,
		HorizonDays:       r.HorizonDays,
		HorizonDemand:     r.HorizonDemand,
		ForecastDailyMean: r.ForecastDailyMean,
		HistDailyMean:     r.HistDailyMean,
		HistDailyStd:      r.HistDailyStd,
		LeadTimeDays:      r.LeadTimeDays,
		UnitPrice:         r.UnitPrice,
		Optimization: domain.OptimizationResult{
			DailyDemandMean:    r.DailyDemandMean,
			DailyDemandStd:     r.DailyDemandStd,
			AnnualDemand:       r.AnnualDemand,
			EOQ:                r.EOQ,
			EOQConstrained:     r.EOQConstrained,
			SafetyStock:        r.SafetyStock,
			ReorderPoint:       r.ReorderPoint,
			OrderUpToLevel:     r.OrderUpToLevel,
			CurrentStock:       r.CurrentStock,
			NeedsReorder:       r.NeedsReorder,
			OrderQuantity:      r.OrderQuantity,
			TotalCost:          r.TotalCost,
			DaysOfSupply:       r.DaysOfSupply,
			CategoryMultiplier: r.CategoryMultiplier,
			MaxOrderWeeks:      r.MaxOrderWeeks,
		},
	}
}

// SaveBatch stores one completed run: a run header, every prediction and
// every skip, in a single transaction. Returns the run id.
func (r *resultsRepository) SaveBatch(ctx context.Context, batch *domain.BatchResult) (int64, error) {
	var runID int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		header := `
			INSERT INTO forecast_runs (started_at, duration_ms, predicted, skipped, reorders)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, header,
			batch.StartedAt,
			batch.Duration.Milliseconds(),
			len(batch.Predictions),
			len(batch.Skipped),
			batch.ReorderCount(),
		).Scan(&runID)
		if err != nil {
			return fmt.Errorf("failed to insert run header: %w", err)
		}

		insert := `
			INSERT INTO forecast_results (
				run_id, product_id, store_id, category, generated_at,
				horizon_days, horizon_demand, forecast_daily_mean,
				hist_daily_mean, hist_daily_std, lead_time_days, unit_price,
				daily_demand_mean, daily_demand_std, annual_demand,
				eoq, eoq_constrained, safety_stock, reorder_point,
				order_up_to_level, current_stock, needs_reorder,
				order_quantity, total_cost, days_of_supply,
				category_multiplier, max_order_weeks
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
			)
		`
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range batch.Predictions {
			opt := rec.Optimization
			_, err := stmt.ExecContext(ctx,
				runID, rec.ProductID, rec.StoreID, rec.Category, rec.GeneratedAt,
				rec.HorizonDays, rec.HorizonDemand, rec.ForecastDailyMean,
				rec.HistDailyMean, rec.HistDailyStd, rec.LeadTimeDays, rec.UnitPrice,
				opt.DailyDemandMean, opt.DailyDemandStd, opt.AnnualDemand,
				opt.EOQ, opt.EOQConstrained, opt.SafetyStock, opt.ReorderPoint,
				opt.OrderUpToLevel, opt.CurrentStock, opt.NeedsReorder,
				opt.OrderQuantity, opt.TotalCost, opt.DaysOfSupply,
				opt.CategoryMultiplier, opt.MaxOrderWeeks,
			)
			if err != nil {
				return fmt.Errorf("failed to insert forecast result: %w", err)
			}
		}

		skipInsert := `
			INSERT INTO forecast_skips (run_id, product_id, reason)
			VALUES ($1, $2, $3)
		`
		for _, skip := range batch.Skipped {
			if _, err := tx.ExecContext(ctx, skipInsert, runID, skip.ProductID, skip.Reason); err != nil {
				return fmt.Errorf("failed to insert skip entry: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

const resultColumns = `
	product_id, store_id, category, generated_at, horizon_days,
	horizon_demand, forecast_daily_mean, hist_daily_mean, hist_daily_std,
	lead_time_days, unit_price, daily_demand_mean, daily_demand_std,
	annual_demand, eoq, eoq_constrained, safety_stock, reorder_point,
	order_up_to_level, current_stock, needs_reorder, order_quantity,
	total_cost, days_of_supply, category_multiplier, max_order_weeks
`

// latestRun scopes every read query to the most recent completed run.
const latestRun = `run_id = (SELECT MAX(id) FROM forecast_runs)`

func (r *resultsRepository) GetResults(ctx context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, error) {
	conditions := []string{latestRun}
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.StoreID != "" {
		args = append(args, filter.StoreID)
		conditions = append(conditions, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if len(filter.ProductIDs) > 0 {
		args = append(args, pq.Array(filter.ProductIDs))
		conditions = append(conditions, fmt.Sprintf("product_id = ANY($%d)", len(args)))
	}
	if filter.NeedsReorder != nil {
		args = append(args, *filter.NeedsReorder)
		conditions = append(conditions, fmt.Sprintf("needs_reorder = $%d", len(args)))
	}

	query := `
		SELECT ` + resultColumns + `
		FROM forecast_results
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY product_id, store_id
	`

	var rows []resultRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query forecast results: %w", err)
	}
	return toDomainRecords(rows), nil
}

func (r *resultsRepository) GetProductResult(ctx context.Context, productID, storeID string) (*domain.ForecastRecord, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM forecast_results
		WHERE ` + latestRun + ` AND product_id = $1 AND ($2 = '' OR store_id = $2)
		ORDER BY store_id
		LIMIT 1
	`

	var row resultRow
	err := sqlx.GetContext(ctx, r.db, &row, query, productID, storeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query result for %s: %w", productID, err)
	}
	rec := row.toDomain()
	return &rec, nil
}

// GetReorderList returns the products to reorder now, most urgent first.
// Urgency is days of supply remaining.
func (r *resultsRepository) GetReorderList(ctx context.Context) ([]domain.ForecastRecord, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM forecast_results
		WHERE ` + latestRun + ` AND needs_reorder
		ORDER BY days_of_supply ASC, product_id
	`

	var rows []resultRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query reorder list: %w", err)
	}
	return toDomainRecords(rows), nil
}

func (r *resultsRepository) GetSkipped(ctx context.Context) ([]domain.SkipEntry, error) {
	query := `
		SELECT product_id, reason
		FROM forecast_skips
		WHERE ` + latestRun + `
		ORDER BY product_id
	`

	var skips []domain.SkipEntry
	if err := sqlx.SelectContext(ctx, r.db, &skips, query); err != nil {
		return nil, fmt.Errorf("failed to query skip entries: %w", err)
	}
	return skips, nil
}

func toDomainRecords(rows []resultRow) []domain.ForecastRecord {
	out := make([]domain.ForecastRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out
}
