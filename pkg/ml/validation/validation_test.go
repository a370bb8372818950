package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsOf(counts ...int) []int {
	var out []int
	for k, c := range counts {
		for i := 0; i < c; i++ {
			out = append(out, k)
		}
	}
	return out
}

func countClasses(labels []int, idx []int) map[int]int {
	out := map[int]int{}
	for _, i := range idx {
		out[labels[i]]++
	}
	return out
}

func TestStratifiedSplitPreservesProportions(t *testing.T) {
	labels := labelsOf(50, 30, 20)
	fold := StratifiedSplit(labels, 0.2, 42)
	assert.Len(t, fold.Test, 20)
	assert.Len(t, fold.Train, 80)
	assert.Equal(t, map[int]int{0: 10, 1: 6, 2: 4}, countClasses(labels, fold.Test))

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, fold.Train...), fold.Test...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := labelsOf(20, 20, 20)
	assert.Equal(t, StratifiedSplit(labels, 0.25, 7), StratifiedSplit(labels, 0.25, 7))
}

func TestStratifiedSplitSmallClass(t *testing.T) {
	labels := labelsOf(10, 2, 1)
	fold := StratifiedSplit(labels, 0.1, 1)
	counts := countClasses(labels, fold.Test)
	assert.Equal(t, 1, counts[1])
	assert.Equal(t, 0, counts[2])
	assert.Equal(t, 1, countClasses(labels, fold.Train)[2])
}

func TestStratifiedKFold(t *testing.T) {
	labels := labelsOf(25, 15, 10)
	folds := StratifiedKFold(labels, 5, 42)
	require.Len(t, folds, 5)
	covered := map[int]int{}
	for _, f := range folds {
		assert.Len(t, f.Test, 10)
		assert.Len(t, f.Train, 40)
		assert.Equal(t, map[int]int{0: 5, 1: 3, 2: 2}, countClasses(labels, f.Test))
		for _, i := range f.Test {
			covered[i]++
		}
	}
	assert.Len(t, covered, 50)
	for _, c := range covered {
		assert.Equal(t, 1, c)
	}
}

func TestEvaluate(t *testing.T) {
	truth := []int{0, 0, 1, 1, 2, 2}
	pred := []int{0, 1, 1, 1, 2, 0}
	r := Evaluate(truth, pred, []string{"low", "medium", "high"})
	assert.InDelta(t, 4.0/6, r.Accuracy, 1e-9)
	assert.Equal(t, [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 1}}, r.Confusion)
	assert.Equal(t, "medium", r.Classes[1].Label)
	assert.InDelta(t, 2.0/3, r.Classes[1].Precision, 1e-9)
	assert.InDelta(t, 1.0, r.Classes[1].Recall, 1e-9)
	assert.InDelta(t, 0.8, r.Classes[1].F1, 1e-9)
	assert.Equal(t, 2, r.Classes[2].Support)
}

func TestEvaluateEmptyClass(t *testing.T) {
	r := Evaluate([]int{0, 0}, []int{0, 0}, []string{"low", "medium", "high"})
	assert.Equal(t, ClassMetrics{Label: "high"}, r.Classes[2])
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.5, 0.7, 0.9})
	assert.InDelta(t, 0.7, s.Mean, 1e-9)
	assert.InDelta(t, 0.163299, s.Std, 1e-6)
	assert.Equal(t, 0.5, s.Min)
	assert.Equal(t, 0.9, s.Max)
}

func TestCrossValidateOrderAndErrors(t *testing.T) {
	labels := labelsOf(10, 10)
	samples := make([][]float64, len(labels))
	for i := range samples {
		samples[i] = []float64{float64(i)}
	}
	folds := StratifiedKFold(labels, 4, 1)

	scores, err := CrossValidate(context.Background(), samples, labels, folds, 2,
		func(_ context.Context, trainX [][]float64, _ []int, testX [][]float64, _ []int) (float64, error) {
			return float64(len(trainX)*100 + len(testX)), nil
		})
	require.NoError(t, err)
	assert.Equal(t, []float64{1505, 1505, 1505, 1505}, scores)

	boom := errors.New("boom")
	_, err = CrossValidate(context.Background(), samples, labels, folds, 0,
		func(context.Context, [][]float64, []int, [][]float64, []int) (float64, error) {
			return 0, boom
		})
	assert.ErrorIs(t, err, boom)
}
