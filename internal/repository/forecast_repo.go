package repository

import (
	"context"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// ObservationRepository persists the canonical sales history the pipeline
// trains and forecasts from.
type ObservationRepository interface {
	SaveObservations(ctx context.Context, rows []domain.Row) error
	LoadObservations(ctx context.Context) ([]domain.Row, error)
	LoadProductObservations(ctx context.Context, productID string) ([]domain.Row, error)
}

// ResultsRepository persists completed batch runs and serves the
// recommendation queries behind the API.
type ResultsRepository interface {
	SaveBatch(ctx context.Context, batch *domain.BatchResult) (int64, error)
	GetResults(ctx context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, error)
	GetProductResult(ctx context.Context, productID, storeID string) (*domain.ForecastRecord, error)
	GetReorderList(ctx context.Context) ([]domain.ForecastRecord, error)
	GetSkipped(ctx context.Context) ([]domain.SkipEntry, error)
}
