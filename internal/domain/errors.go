package domain

import (
	"errors"
	"fmt"
	"strings"
)

// skippable marks errors that abort a single product but never the batch.
// The batch runner records them as skip entries; anything else is fatal.
type skippable interface {
	Skippable() bool
}

// IsSkippable reports whether err (or anything it wraps) is a per-product
// error the batch runner should convert into a skip entry.
func IsSkippable(err error) bool {
	var s skippable
	return errors.As(err, &s) && s.Skippable()
}

// SchemaError reports required columns missing after normalization, or a
// date column that cannot be parsed. Fatal for the dataset it occurred in.
type SchemaError struct {
	Missing []string
	Detail  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema error: missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("schema error: %s", e.Detail)
}

// InsufficientDataError reports that no series survived the minimum-length
// filter during sequence construction.
type InsufficientDataError struct {
	Required int
	Series   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: none of %d series reach the required %d observations", e.Series, e.Required)
}

func (e *InsufficientDataError) Skippable() bool { return true }

// InsufficientHistoryError reports that a series has fewer usable rows than
// the lookback window needed at inference time.
type InsufficientHistoryError struct {
	Have     int
	Lookback int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: %d usable rows, lookback requires %d", e.Have, e.Lookback)
}

func (e *InsufficientHistoryError) Skippable() bool { return true }

// ModelError wraps a failure (or timeout) of the external forecasting
// function. A hung model call becomes a per-product skip, not a stalled batch.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model call failed: %v", e.Err) }

func (e *ModelError) Unwrap() error { return e.Err }

func (e *ModelError) Skippable() bool { return true }
