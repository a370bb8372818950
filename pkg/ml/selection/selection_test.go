package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// column 0 carries the label, column 1 alternates independently of it and
// column 2 is constant.
func dataset() ([][]float64, []int) {
	var samples [][]float64
	var labels []int
	for i := 0; i < 30; i++ {
		for k := 0; k < 3; k++ {
			samples = append(samples, []float64{float64(k), float64(i % 2), 1})
			labels = append(labels, k)
		}
	}
	return samples, labels
}

func TestSelectStrategies(t *testing.T) {
	samples, labels := dataset()
	for _, strategy := range []Strategy{Importance, KBest, RecursiveElimination} {
		t.Run(string(strategy), func(t *testing.T) {
			cols, err := Select(context.Background(), strategy, samples, labels, 3, 1)
			require.NoError(t, err)
			assert.Equal(t, []int{0}, cols)
		})
	}
}

func TestSelectKeepsAllColumns(t *testing.T) {
	samples, labels := dataset()
	cols, err := Select(context.Background(), None, samples, labels, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cols)

	cols, err = Select(context.Background(), KBest, samples, labels, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cols)
}

func TestANOVAF(t *testing.T) {
	samples, labels := dataset()
	f := ANOVAF(samples, labels, 3)
	assert.Equal(t, maxF, f[0])
	assert.InDelta(t, 0.0, f[1], 1e-9)
	assert.Equal(t, 0.0, f[2])
}

func TestRankTieBreak(t *testing.T) {
	ranked := Rank([]float64{1, 3, 1, 3})
	assert.Equal(t, []Score{{1, 3}, {3, 3}, {0, 1}, {2, 1}}, ranked)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("K_Best")
	require.NoError(t, err)
	assert.Equal(t, KBest, s)
	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, None, s)
	_, err = ParseStrategy("lasso")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSelectCancelled(t *testing.T) {
	samples, labels := dataset()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Select(ctx, RecursiveElimination, samples, labels, 3, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
