package preprocess

import (
	"errors"
	"fmt"
	"math"
)

var ErrWidthMismatch = errors.New("sample width does not match scaler")

// Scaler standardizes each feature to zero mean and unit variance using
// parameters fitted on a training set. Constant features keep a scale of 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes per-feature mean and population standard deviation.
func Fit(samples [][]float64) Scaler {
	if len(samples) == 0 {
		return Scaler{}
	}
	width := len(samples[0])
	s := Scaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	n := float64(len(samples))
	for _, row := range samples {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range samples {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] < 1e-12 {
			s.Scale[j] = 1
		}
	}
	return s
}

// Width is the number of features the scaler was fitted on.
func (s Scaler) Width() int {
	return len(s.Mean)
}

// Transform standardizes one sample into a new slice.
func (s Scaler) Transform(sample []float64) ([]float64, error) {
	if len(sample) != len(s.Mean) || len(s.Scale) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWidthMismatch, len(sample), len(s.Mean))
	}
	out := make([]float64, len(sample))
	for j, v := range sample {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll standardizes every sample.
func (s Scaler) TransformAll(samples [][]float64) ([][]float64, error) {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
