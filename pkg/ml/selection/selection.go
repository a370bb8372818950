package selection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/linear"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
)

type Strategy string

const (
	None                 Strategy = "none"
	Importance           Strategy = "importance"
	KBest                Strategy = "k_best"
	RecursiveElimination Strategy = "recursive_elimination"
)

var ErrUnknownStrategy = errors.New("unknown feature selection strategy")

// maxF caps the F statistic of features that separate classes perfectly.
const maxF = 1e12

var rankingModel = linear.Options{Epochs: 200, LearningRate: 0.1, L2: 0.001}

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", None:
		return None, nil
	case Importance:
		return Importance, nil
	case KBest:
		return KBest, nil
	case RecursiveElimination:
		return RecursiveElimination, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStrategy, s)
}

// Score pairs a column index with its ranking score.
type Score struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Select returns the column indices to keep, in ascending column order.
// With None, or when n is not smaller than the column count, every column
// is kept.
func Select(ctx context.Context, strategy Strategy, samples [][]float64, labels []int, classes, n int) ([]int, error) {
	width := 0
	if len(samples) > 0 {
		width = len(samples[0])
	}
	if strategy == None || n <= 0 || n >= width {
		return allColumns(width), nil
	}
	switch strategy {
	case Importance:
		scores, err := ModelImportance(ctx, samples, labels, classes)
		if err != nil {
			return nil, err
		}
		return top(scores, n), nil
	case KBest:
		return top(ANOVAF(samples, labels, classes), n), nil
	case RecursiveElimination:
		return eliminate(ctx, samples, labels, classes, n)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, strategy)
}

// ModelImportance fits a standardized softmax model and scores each column
// by its mean absolute coefficient.
func ModelImportance(ctx context.Context, samples [][]float64, labels []int, classes int) ([]float64, error) {
	scaled, err := preprocess.Fit(samples).TransformAll(samples)
	if err != nil {
		return nil, err
	}
	weights, _, err := linear.TrainSoftmax(ctx, scaled, labels, classes, rankingModel)
	if err != nil {
		return nil, err
	}
	return linear.Importance(weights), nil
}

// ANOVAF computes the one-way ANOVA F statistic of every column against the
// class labels. Constant columns score 0.
func ANOVAF(samples [][]float64, labels []int, classes int) []float64 {
	if len(samples) == 0 {
		return nil
	}
	width := len(samples[0])
	n := float64(len(samples))
	counts := make([]float64, classes)
	for _, l := range labels {
		counts[l]++
	}
	groups := 0
	for _, c := range counts {
		if c > 0 {
			groups++
		}
	}
	dfBetween := float64(groups - 1)
	dfWithin := n - float64(groups)

	out := make([]float64, width)
	for j := 0; j < width; j++ {
		var total float64
		sums := make([]float64, classes)
		for i, row := range samples {
			total += row[j]
			sums[labels[i]] += row[j]
		}
		grand := total / n
		var between, within float64
		for k := 0; k < classes; k++ {
			if counts[k] == 0 {
				continue
			}
			mean := sums[k] / counts[k]
			between += counts[k] * (mean - grand) * (mean - grand)
		}
		for i, row := range samples {
			mean := sums[labels[i]] / counts[labels[i]]
			d := row[j] - mean
			within += d * d
		}
		switch {
		case dfBetween <= 0 || between < 1e-12:
			out[j] = 0
		case dfWithin <= 0 || within < 1e-12:
			out[j] = maxF
		default:
			out[j] = math.Min((between/dfBetween)/(within/dfWithin), maxF)
		}
	}
	return out
}

// eliminate repeatedly drops the least important tenth of the remaining
// columns until n are left.
func eliminate(ctx context.Context, samples [][]float64, labels []int, classes, n int) ([]int, error) {
	remaining := allColumns(len(samples[0]))
	for len(remaining) > n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores, err := ModelImportance(ctx, preprocess.Columns(samples, remaining), labels, classes)
		if err != nil {
			return nil, err
		}
		drop := len(remaining) / 10
		if drop < 1 {
			drop = 1
		}
		if len(remaining)-drop < n {
			drop = len(remaining) - n
		}
		keep := top(scores, len(remaining)-drop)
		next := make([]int, len(keep))
		for i, k := range keep {
			next[i] = remaining[k]
		}
		remaining = next
	}
	return remaining, nil
}

// Rank orders columns by descending score; ties go to the lower index.
func Rank(scores []float64) []Score {
	out := make([]Score, len(scores))
	for i, s := range scores {
		out[i] = Score{Index: i, Score: s}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Index < out[b].Index
	})
	return out
}

func top(scores []float64, n int) []int {
	ranked := Rank(scores)
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].Index
	}
	sort.Ints(out)
	return out
}

func allColumns(width int) []int {
	out := make([]int, width)
	for i := range out {
		out[i] = i
	}
	return out
}
