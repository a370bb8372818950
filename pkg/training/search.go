package training

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/linear"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/validation"
)

// Grid is the hyperparameter space searched when search is enabled.
type Grid struct {
	LearningRates []float64 `json:"learning_rates"`
	L2            []float64 `json:"l2"`
	Epochs        []int     `json:"epochs"`
}

func DefaultGrid() Grid {
	return Grid{
		LearningRates: []float64{0.05, 0.1, 0.3},
		L2:            []float64{0, 0.001, 0.01},
		Epochs:        []int{300, 600},
	}
}

// Configs expands the grid in a fixed order.
func (g Grid) Configs() []linear.Options {
	var out []linear.Options
	for _, lr := range g.LearningRates {
		for _, l2 := range g.L2 {
			for _, epochs := range g.Epochs {
				out = append(out, linear.Options{Epochs: epochs, LearningRate: lr, L2: l2})
			}
		}
	}
	return out
}

// foldScorer standardizes inside each fold so the held-out fold never
// influences the scaling.
func foldScorer(classes int, opts linear.Options) validation.FitScore {
	return func(ctx context.Context, trainX [][]float64, trainY []int, testX [][]float64, testY []int) (float64, error) {
		scaler := preprocess.Fit(trainX)
		xs, err := scaler.TransformAll(trainX)
		if err != nil {
			return 0, err
		}
		ts, err := scaler.TransformAll(testX)
		if err != nil {
			return 0, err
		}
		weights, _, err := linear.TrainSoftmax(ctx, xs, trainY, classes, opts)
		if err != nil {
			return 0, err
		}
		return linear.Evaluate(weights, ts, testY).Accuracy, nil
	}
}

type searchResult struct {
	best    linear.Options
	summary validation.Summary
	tried   int
}

// search cross-validates every config concurrently and keeps the best mean
// accuracy. Ties go to the config listed first.
func search(ctx context.Context, samples [][]float64, labels []int, classes int, folds []validation.Fold, configs []linear.Options, workers int) (searchResult, error) {
	summaries := make([]validation.Summary, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			scores, err := validation.CrossValidate(gctx, samples, labels, folds, 1, foldScorer(classes, cfg))
			if err != nil {
				return err
			}
			summaries[i] = validation.Summarize(scores)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return searchResult{}, err
	}
	best := 0
	for i := 1; i < len(configs); i++ {
		if summaries[i].Mean > summaries[best].Mean {
			best = i
		}
	}
	return searchResult{best: configs[best], summary: summaries[best], tried: len(configs)}, nil
}
