package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// runSeed loads a CSV export into the observations table in one
// transaction. Normalization happens here too, so the table only ever holds
// canonical rows.
func runSeed(c *cli.Context) error {
	byStore := c.Bool("by-store")

	table, err := dataset.LoadCSV(c.String("input"))
	if err != nil {
		return err
	}

	schema := dataset.DefaultSchema()
	schema.ByStore = byStore
	rows, err := dataset.Normalize(table, schema)
	if err != nil {
		return err
	}
	rows = dataset.AggregateDuplicates(rows, byStore)

	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := seedObservations(ctx, tx, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Log.Info().Int("rows", len(rows)).Msg("observations seeded")
	return nil
}

func seedObservations(ctx context.Context, tx *sql.Tx, rows []domain.Row) error {
	query := `
		INSERT INTO observations (
			date, store_id, product_id, inventory_level, units_sold,
			units_ordered, price, discount, holiday_promotion,
			competitor_pricing, seasonality, lead_time_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (date, store_id, product_id) DO UPDATE SET
			inventory_level = EXCLUDED.inventory_level,
			units_sold = EXCLUDED.units_sold,
			units_ordered = EXCLUDED.units_ordered,
			price = EXCLUDED.price,
			discount = EXCLUDED.discount,
			holiday_promotion = EXCLUDED.holiday_promotion,
			competitor_pricing = EXCLUDED.competitor_pricing,
			seasonality = EXCLUDED.seasonality,
			lead_time_days = EXCLUDED.lead_time_days,
			updated_at = NOW()
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.Date,
			row.StoreID,
			row.ProductID,
			row.Values[domain.ColInventoryLevel],
			row.Values[domain.ColUnitsSold],
			row.Values[domain.ColUnitsOrdered],
			row.Values[domain.ColPrice],
			row.Values[domain.ColDiscount],
			row.Values[domain.ColHolidayPromotion],
			row.Values[domain.ColCompetitorPricing],
			row.Seasonality,
			row.Values[domain.ColLeadTimeDays],
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}

		if (i+1)%5000 == 0 {
			logger.Log.Info().Int("rows", i+1).Msg("seeding observations...")
		}
	}

	return nil
}
