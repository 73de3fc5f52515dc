package bundle

import (
	"fmt"
	"math"
)

// StandardScaler standardizes feature vectors to zero mean and unit variance
// per column. Fit once on the training partition, then shared read-only.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit computes per-column mean and population standard deviation. Columns
// with zero variance get std 1 so transforming them is a no-op shift.
func (s *StandardScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 {
		return fmt.Errorf("cannot fit scaler on empty matrix")
	}
	nCols := len(matrix[0])
	s.Mean = make([]float64, nCols)
	s.Std = make([]float64, nCols)

	for _, row := range matrix {
		if len(row) != nCols {
			return fmt.Errorf("ragged matrix: row has %d columns, expected %d", len(row), nCols)
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(matrix))
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range matrix {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

// Fitted reports whether Fit has been called.
func (s *StandardScaler) Fitted() bool { return len(s.Mean) > 0 }

// TransformRow standardizes a single feature vector in place-free fashion.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("vector has %d columns, scaler was fitted on %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// Transform standardizes a whole matrix.
func (s *StandardScaler) Transform(matrix [][]float64) ([][]float64, error) {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
