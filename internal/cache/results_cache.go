package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
)

const (
	resultsKeyPrefix     = "forecast:results"
	resultsScanBatchSize = 100
)

// ResultsCache shields the results repository from repeated identical
// queries. Entries are invalidated whenever a new batch lands.
type ResultsCache interface {
	GetResults(ctx context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, bool, error)
	SetResults(ctx context.Context, filter domain.ResultsFilter, records []domain.ForecastRecord) error
	InvalidateAll(ctx context.Context) error
}

type redisResultsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopResultsCache struct{}

func NewResultsCache(cfg config.CacheConfig) (ResultsCache, error) {
	if !cfg.Enabled {
		return &noopResultsCache{}, nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisResultsCache{
		client: client,
		ttl:    resultsTTL(cfg),
	}, nil
}

func NewNoopResultsCache() ResultsCache {
	return &noopResultsCache{}
}

func (c *redisResultsCache) GetResults(ctx context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, bool, error) {
	key := buildResultsKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var records []domain.ForecastRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode forecast results cache: %w", err)
	}

	return records, true, nil
}

func (c *redisResultsCache) SetResults(ctx context.Context, filter domain.ResultsFilter, records []domain.ForecastRecord) error {
	key := buildResultsKey(filter)
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode forecast results cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisResultsCache) InvalidateAll(ctx context.Context) error {
	return dropPrefix(ctx, c.client, resultsKeyPrefix, resultsScanBatchSize)
}

func (n *noopResultsCache) GetResults(ctx context.Context, filter domain.ResultsFilter) ([]domain.ForecastRecord, bool, error) {
	return nil, false, nil
}

func (n *noopResultsCache) SetResults(ctx context.Context, filter domain.ResultsFilter, records []domain.ForecastRecord) error {
	return nil
}

func (n *noopResultsCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildResultsKey(filter domain.ResultsFilter) string {
	return fmt.Sprintf("%s:%s", resultsKeyPrefix, resultsFilterHash(filter))
}

func resultsFilterHash(filter domain.ResultsFilter) string {
	parts := []string{}

	if filter.Category != "" {
		parts = append(parts, "category="+strings.TrimSpace(filter.Category))
	}
	if filter.StoreID != "" {
		parts = append(parts, "store_id="+strings.TrimSpace(filter.StoreID))
	}
	if len(filter.ProductIDs) > 0 {
		parts = append(parts, "product_ids="+joinStrings(filter.ProductIDs))
	}
	if filter.NeedsReorder != nil {
		parts = append(parts, fmt.Sprintf("needs_reorder=%t", *filter.NeedsReorder))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(strings.ToLower(c[i]))
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
