package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type observationRepository struct {
	db *DB
}

func NewObservationRepository(db *DB) *observationRepository {
	return &observationRepository{db: db}
}

// observationRow is the flat table shape of one history observation.
type observationRow struct {
	Date              time.Time `db:"date"`
	StoreID           string    `db:"store_id"`
	ProductID         string    `db:"product_id"`
	InventoryLevel    float64   `db:"inventory_level"`
	UnitsSold         float64   `db:"units_sold"`
	UnitsOrdered      float64   `db:"units_ordered"`
	Price             float64   `db:"price"`
	Discount          float64   `db:"discount"`
	HolidayPromotion  float64   `db:"holiday_promotion"`
	CompetitorPricing float64   `db:"competitor_pricing"`
	Seasonality       string    `db:"seasonality"`
	LeadTimeDays      float64   `db:"lead_time_days"`
}

func (o observationRow) toDomain() domain.Row {
	return domain.Row{
		Date:        o.Date,
		ProductID:   o.ProductID,
		StoreID:     o.StoreID,
		Seasonality: o.Seasonality,
		Values: map[string]float64{
			domain.ColInventoryLevel:    o.InventoryLevel,
			domain.ColUnitsSold:         o.UnitsSold,
			domain.ColUnitsOrdered:      o.UnitsOrdered,
			domain.ColPrice:             o.Price,
			domain.ColDiscount:          o.Discount,
			domain.ColHolidayPromotion:  o.HolidayPromotion,
			domain.ColCompetitorPricing: o.CompetitorPricing,
			domain.ColLeadTimeDays:      o.LeadTimeDays,
		},
	}
}

func (r *observationRepository) SaveObservations(ctx context.Context, rows []domain.Row) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO observations (
				date, store_id, product_id, inventory_level, units_sold,
				units_ordered, price, discount, holiday_promotion,
				competitor_pricing, seasonality, lead_time_days
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (date, store_id, product_id)
			DO UPDATE SET
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

		for _, row := range rows {
			_, err := stmt.ExecContext(
				ctx,
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
		}

		return nil
	})
}

const observationColumns = `
	date, store_id, product_id, inventory_level, units_sold,
	units_ordered, price, discount, holiday_promotion,
	competitor_pricing, seasonality, lead_time_days
`

func (r *observationRepository) LoadObservations(ctx context.Context) ([]domain.Row, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM observations
		ORDER BY product_id, store_id, date
	`

	var rows []observationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}

	return toDomainRows(rows), nil
}

func (r *observationRepository) LoadProductObservations(ctx context.Context, productID string) ([]domain.Row, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM observations
		WHERE product_id = $1
		ORDER BY store_id, date
	`

	var rows []observationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, productID); err != nil {
		return nil, fmt.Errorf("failed to load observations for %s: %w", productID, err)
	}

	return toDomainRows(rows), nil
}

func toDomainRows(rows []observationRow) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, o := range rows {
		out[i] = o.toDomain()
	}
	return out
}
