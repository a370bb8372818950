package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitTransform(t *testing.T) {
	samples := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s := Fit(samples)
	assert.Equal(t, []float64{3, 5}, s.Mean)
	assert.InDelta(t, 1.632993, s.Scale[0], 1e-6)
	assert.Equal(t, 1.0, s.Scale[1])

	out, err := s.TransformAll(samples)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out[1][0], 1e-12)
	assert.InDelta(t, -out[0][0], out[2][0], 1e-12)
	assert.Equal(t, 0.0, out[0][1])
}

func TestTransformWidthMismatch(t *testing.T) {
	s := Fit([][]float64{{1, 2}})
	_, err := s.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrWidthMismatch)
}
