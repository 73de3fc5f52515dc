package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/bundle"
	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/features"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/runner"
)

type memObservations struct {
	rows []domain.Row
}

func (m *memObservations) SaveObservations(_ context.Context, rows []domain.Row) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memObservations) LoadObservations(context.Context) ([]domain.Row, error) {
	return m.rows, nil
}

func (m *memObservations) LoadProductObservations(_ context.Context, productID string) ([]domain.Row, error) {
	var out []domain.Row
	for _, r := range m.rows {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memResults struct {
	batches []*domain.BatchResult
	queries int
}

func (m *memResults) SaveBatch(_ context.Context, batch *domain.BatchResult) (int64, error) {
	m.batches = append(m.batches, batch)
	return int64(len(m.batches)), nil
}

func (m *memResults) GetResults(context.Context, domain.ResultsFilter) ([]domain.ForecastRecord, error) {
	m.queries++
	if len(m.batches) == 0 {
		return nil, nil
	}
	var out []domain.ForecastRecord
	for _, rec := range m.batches[len(m.batches)-1].Predictions {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memResults) GetProductResult(_ context.Context, productID, storeID string) (*domain.ForecastRecord, error) {
	if len(m.batches) == 0 {
		return nil, nil
	}
	for _, rec := range m.batches[len(m.batches)-1].Predictions {
		if rec.ProductID == productID && rec.StoreID == storeID {
			return rec, nil
		}
	}
	return nil, nil
}

func (m *memResults) GetReorderList(ctx context.Context) ([]domain.ForecastRecord, error) {
	records, err := m.GetResults(ctx, domain.ResultsFilter{})
	if err != nil {
		return nil, err
	}
	var out []domain.ForecastRecord
	for _, rec := range records {
		if rec.Optimization.NeedsReorder {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memResults) GetSkipped(context.Context) ([]domain.SkipEntry, error) {
	if len(m.batches) == 0 {
		return nil, nil
	}
	return m.batches[len(m.batches)-1].Skipped, nil
}

type spyCache struct {
	store         map[string][]domain.ForecastRecord
	invalidations int
}

func newSpyCache() *spyCache {
	return &spyCache{store: make(map[string][]domain.ForecastRecord)}
}

func cacheKey(filter domain.ResultsFilter) string {
	key := filter.Category + "|" + filter.StoreID
	for _, id := range filter.ProductIDs {
		key += "|" + id
	}
	return key
}

func (c *spyCache) GetResults(_ context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, bool, error) {
	records, ok := c.store[cacheKey(filter)]
	return records, ok, nil
}

func (c *spyCache) SetResults(_ context.Context, filter domain.ResultsFilter, records []domain.ForecastRecord) error {
	c.store[cacheKey(filter)] = records
	return nil
}

func (c *spyCache) InvalidateAll(context.Context) error {
	c.invalidations++
	c.store = make(map[string][]domain.ForecastRecord)
	return nil
}

func testRunner() *runner.Runner {
	cols := []string{
		domain.ColUnitsSold,
		features.LagColumn(1),
		features.LagColumn(7),
	}
	b := &bundle.Preprocess{
		FeatureCols: cols,
		Scaler:      bundle.StandardScaler{Mean: make([]float64, len(cols)), Std: []float64{1, 1, 1}},
		Lookback:    5,
		Horizon:     7,
		CreatedAt:   time.Now().UTC(),
	}
	model := forecast.ForecastFunc(func(context.Context, [][]float64) (float64, error) {
		return 35, nil
	})
	return runner.New(forecast.NewAdapter(model, b, 0), runner.DefaultConfig())
}

func historyRows(product string, days int) []domain.Row {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]domain.Row, days)
	for i := range rows {
		rows[i] = domain.Row{
			Date:        start.AddDate(0, 0, i),
			ProductID:   product,
			StoreID:     "S1",
			Seasonality: "Bakery",
			Values: map[string]float64{
				domain.ColUnitsSold:      5,
				domain.ColPrice:          3,
				domain.ColInventoryLevel: 10,
			},
		}
	}
	return rows
}

func TestRunBatchPersistsAndInvalidatesCache(t *testing.T) {
	obs := &memObservations{rows: append(historyRows("P1", 30), historyRows("P2", 30)...)}
	results := &memResults{}
	cacheSpy := newSpyCache()
	svc := NewForecastService(obs, results, testRunner(), cacheSpy, dataset.DefaultSchema())

	batch, runID, err := svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)
	assert.Len(t, batch.Predictions, 2)
	assert.Empty(t, batch.Skipped)
	require.Len(t, results.batches, 1)
	assert.Equal(t, 1, cacheSpy.invalidations)
}

func TestRunBatchWithoutObservationsFails(t *testing.T) {
	svc := NewForecastService(&memObservations{}, &memResults{}, testRunner(), nil, dataset.DefaultSchema())

	_, _, err := svc.RunBatch(context.Background())
	assert.Error(t, err)
}

func TestGetResultsCacheAside(t *testing.T) {
	obs := &memObservations{rows: historyRows("P1", 30)}
	results := &memResults{}
	cacheSpy := newSpyCache()
	svc := NewForecastService(obs, results, testRunner(), cacheSpy, dataset.DefaultSchema())

	_, _, err := svc.RunBatch(context.Background())
	require.NoError(t, err)

	filter := domain.ResultsFilter{Category: "Bakery"}
	first, err := svc.GetResults(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, results.queries)

	second, err := svc.GetResults(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, results.queries, "second read should come from the cache")
}

func TestIngestCSV(t *testing.T) {
	csvData := "Date,Store ID,Product ID,Inventory Level,Units Sold,Units Ordered,Price,Discount,Holiday/Promotion,Competitor Pricing,Seasonality\n" +
		"2024-05-01,S1,P1,10,5,0,3.00,0,0,2.80,Bakery\n" +
		"2024-05-02,S1,P1,8,7,0,3.00,0,1,2.80,Bakery\n"
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	obs := &memObservations{}
	svc := NewForecastService(obs, &memResults{}, testRunner(), nil, dataset.DefaultSchema())

	n, err := svc.IngestCSV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, obs.rows, 2)
	assert.Equal(t, "P1", obs.rows[0].ProductID)
	assert.Equal(t, 5.0, obs.rows[0].Values[domain.ColUnitsSold])
}
