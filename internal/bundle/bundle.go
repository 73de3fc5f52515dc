// Package bundle holds the preprocessing artifact that keeps training and
// inference consistent: the ordered feature columns, the fitted scaler and
// the window geometry. Created once after training-data preparation and
// loaded unchanged for every inference call.
package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/stockcast/internal/storage"
)

// Preprocess is the persisted preprocessing bundle. FeatureCols is
// authoritative: inference frames are reindexed against it, never the other
// way around.
type Preprocess struct {
	FeatureCols  []string       `json:"feature_cols"`
	Scaler       StandardScaler `json:"scaler"`
	Lookback     int            `json:"lookback"`
	Horizon      int            `json:"horizon"`
	UseLogTarget bool           `json:"use_log_target"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Validate checks internal consistency before the bundle is trusted.
func (p *Preprocess) Validate() error {
	if len(p.FeatureCols) == 0 {
		return fmt.Errorf("bundle has no feature columns")
	}
	if p.Lookback <= 0 || p.Horizon <= 0 {
		return fmt.Errorf("bundle has invalid window geometry: lookback=%d horizon=%d", p.Lookback, p.Horizon)
	}
	if len(p.Scaler.Mean) != len(p.FeatureCols) || len(p.Scaler.Std) != len(p.FeatureCols) {
		return fmt.Errorf("scaler dimensions do not match %d feature columns", len(p.FeatureCols))
	}
	return nil
}

// Save writes the bundle as JSON, creating parent directories as needed.
func (p *Preprocess) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create bundle dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads and validates a bundle from disk.
func Load(path string) (*Preprocess, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle %s: %w", path, err)
	}
	return decode(data)
}

// Upload pushes the bundle to object storage under the given key.
func (p *Preprocess) Upload(ctx context.Context, store storage.ObjectStorage, key string) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return store.UploadObject(ctx, key, data)
}

// Fetch downloads and validates a bundle from object storage.
func Fetch(ctx context.Context, store storage.ObjectStorage, key string) (*Preprocess, error) {
	var buf bytes.Buffer
	if err := store.DownloadObject(ctx, key, &buf); err != nil {
		return nil, fmt.Errorf("failed to download bundle %s: %w", key, err)
	}
	return decode(buf.Bytes())
}

func decode(data []byte) (*Preprocess, error) {
	var p Preprocess
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
