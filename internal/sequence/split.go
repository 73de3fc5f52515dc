// Package sequence turns per-series history into supervised learning
// windows: time-respecting train/validation splits, sliding lookback
// windows with horizon-sum targets, and a scaler fitted on training data
// only.
package sequence

import (
	"math"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Config fixes the window geometry and split behavior.
type Config struct {
	Lookback         int
	Horizon          int
	ValSplitFraction float64 // chronological tail fraction held out per series
	Margin           int     // extra observations required beyond lookback+horizon
	UseLogTarget     bool    // targets become log1p(sum demand)
}

// DefaultConfig mirrors the production window geometry: 28 days in, 7-day
// demand sum out, last 15% of each series held out.
func DefaultConfig() Config {
	return Config{
		Lookback:         28,
		Horizon:          7,
		ValSplitFraction: 0.15,
		Margin:           5,
	}
}

// MinSeriesLen is the shortest series eligible for splitting.
func (c Config) MinSeriesLen() int { return c.Lookback + c.Horizon + c.Margin }

// TimeSplitBySeries splits every sufficiently long series at its own time
// fraction, keeping chronological order inside each part so no future value
// leaks into training within a series. Series below the minimum length are
// excluded entirely, never partially included. Returns
// InsufficientDataError when nothing survives.
func TimeSplitBySeries(cfg Config, series []domain.Series) (train, val []domain.Series, err error) {
	minLen := cfg.MinSeriesLen()
	for _, s := range series {
		if s.Len() < minLen {
			continue
		}
		cut := int(math.Floor(float64(s.Len()) * (1.0 - cfg.ValSplitFraction)))
		train = append(train, domain.Series{Key: s.Key, Rows: s.Rows[:cut]})
		val = append(val, domain.Series{Key: s.Key, Rows: s.Rows[cut:]})
	}

	if len(train) == 0 {
		return nil, nil, &domain.InsufficientDataError{Required: minLen, Series: len(series)}
	}
	return train, val, nil
}
