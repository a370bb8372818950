package validation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
)

// FitScore trains on one partition and returns a score on the other.
type FitScore func(ctx context.Context, trainX [][]float64, trainY []int, testX [][]float64, testY []int) (float64, error)

// CrossValidate runs fit on every fold concurrently, at most limit at a
// time (limit <= 0 means no bound). Scores are returned in fold order.
// The first error cancels the remaining folds.
func CrossValidate(ctx context.Context, samples [][]float64, labels []int, folds []Fold, limit int, fit FitScore) ([]float64, error) {
	scores := make([]float64, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, fold := range folds {
		i, fold := i, fold
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := fit(gctx,
				preprocess.Rows(samples, fold.Train), preprocess.Labels(labels, fold.Train),
				preprocess.Rows(samples, fold.Test), preprocess.Labels(labels, fold.Test))
			if err != nil {
				return err
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
