package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/runner"
)

// ForecastService ties the batch runner to persistence and caching: batches
// come in from stored history or CSV uploads, recommendations go out through
// cached queries.
type ForecastService struct {
	observations repository.ObservationRepository
	results      repository.ResultsRepository
	runner       *runner.Runner
	cache        cache.ResultsCache
	schema       dataset.Schema
}

func NewForecastService(
	observations repository.ObservationRepository,
	results repository.ResultsRepository,
	batchRunner *runner.Runner,
	cacheImpl cache.ResultsCache,
	schema dataset.Schema,
) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopResultsCache()
	}
	return &ForecastService{
		observations: observations,
		results:      results,
		runner:       batchRunner,
		cache:        cacheImpl,
		schema:       schema,
	}
}

// IngestCSV normalizes a raw CSV export and stores its observations.
func (s *ForecastService) IngestCSV(ctx context.Context, path string) (int, error) {
	table, err := dataset.LoadCSV(path)
	if err != nil {
		return 0, err
	}
	rows, err := dataset.Normalize(table, s.schema)
	if err != nil {
		return 0, err
	}
	rows = dataset.AggregateDuplicates(rows, s.schema.ByStore)

	if err := s.observations.SaveObservations(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// RunBatch forecasts every series in the stored history, persists the run
// and drops stale cached results. Returns the batch and its run id.
func (s *ForecastService) RunBatch(ctx context.Context) (*domain.BatchResult, int64, error) {
	rows, err := s.observations.LoadObservations(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no observations to forecast")
	}

	batch, err := s.runner.Run(ctx, domain.GroupBySeries(rows, s.schema.ByStore))
	if err != nil {
		return nil, 0, err
	}

	runID, err := s.results.SaveBatch(ctx, batch)
	if err != nil {
		return nil, 0, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("forecast: cache invalidation failed")
	}

	return batch, runID, nil
}

// RunBatchFromCSV forecasts directly from a CSV export without touching the
// stored history. Used by the one-shot CLI path.
func (s *ForecastService) RunBatchFromCSV(ctx context.Context, path string) (*domain.BatchResult, error) {
	table, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return s.runner.RunTable(ctx, table, s.schema)
}

func (s *ForecastService) GetResults(ctx context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, error) {
	if records, ok, err := s.cache.GetResults(ctx, filter); err == nil && ok {
		return records, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast: cache get results failed")
	}

	records, err := s.results.GetResults(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetResults(ctx, filter, records); err != nil {
		log.Warn().Err(err).Msg("forecast: cache set results failed")
	}

	return records, nil
}

func (s *ForecastService) GetProductResult(ctx context.Context, productID, storeID string) (*domain.ForecastRecord, error) {
	return s.results.GetProductResult(ctx, productID, storeID)
}

func (s *ForecastService) GetReorderList(ctx context.Context) ([]domain.ForecastRecord, error) {
	return s.results.GetReorderList(ctx)
}

func (s *ForecastService) GetSkipped(ctx context.Context) ([]domain.SkipEntry, error) {
	return s.results.GetSkipped(ctx)
}
