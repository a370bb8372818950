package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/CS-UWC/OralSmart-sub001/pkg/artifact"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/linear"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/selection"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/validation"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
)

var (
	ErrInsufficientData = errors.New("not enough training samples")
	ErrMissingClass     = errors.New("risk level absent from training partition")
)

// DefaultFeatureCount applies when a selection strategy is set without a
// feature count.
const DefaultFeatureCount = 20

type Options struct {
	Selection    selection.Strategy `json:"feature_selection"`
	NFeatures    int                `json:"n_features"`
	Search       bool               `json:"hyperparameter_search"`
	Grid         Grid               `json:"grid"`
	Classifier   linear.Options     `json:"classifier"`
	TestFraction float64            `json:"test_fraction"`
	Folds        int                `json:"folds"`
	Seed         int64              `json:"seed"`
	MinSamples   int                `json:"min_samples"`
	Workers      int                `json:"workers"`
	RunID        string             `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		Selection:    selection.None,
		Grid:         DefaultGrid(),
		Classifier:   linear.Options{Epochs: 300, LearningRate: 0.1, L2: 0.001},
		TestFraction: 0.2,
		Folds:        5,
		Seed:         42,
		MinSamples:   30,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Selection == "" {
		o.Selection = selection.None
	}
	if o.Selection != selection.None && o.NFeatures <= 0 {
		o.NFeatures = DefaultFeatureCount
	}
	if len(o.Grid.Configs()) == 0 {
		o.Grid = d.Grid
	}
	if o.Classifier.Epochs <= 0 || o.Classifier.LearningRate <= 0 {
		o.Classifier = d.Classifier
	}
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = d.TestFraction
	}
	if o.Folds < 2 {
		o.Folds = d.Folds
	}
	if o.MinSamples <= 0 {
		o.MinSamples = d.MinSamples
	}
	return o
}

type stageClock struct {
	start   time.Time
	seconds map[string]float64
	log     *logrus.Entry
}

func (c *stageClock) done(stage string) {
	elapsed := time.Since(c.start)
	c.seconds[stage] = elapsed.Seconds()
	c.log.WithFields(logrus.Fields{"stage": stage, "seconds": elapsed.Seconds()}).Info("Training stage finished")
	c.start = time.Now()
}

// Train fits a classifier on ds and returns an unsaved artifact.
// Cancellation is honoured between stages and inside cross-validation.
func Train(ctx context.Context, ds *Dataset, opts Options) (*artifact.Artifact, error) {
	opts = opts.withDefaults()
	log := logger.WithFields(logrus.Fields{"run_id": opts.RunID, "selection": opts.Selection, "search": opts.Search})
	clock := &stageClock{start: time.Now(), seconds: map[string]float64{}, log: log}

	if ds.Len() < opts.MinSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, ds.Len(), opts.MinSamples)
	}
	for i, ex := range ds.Examples {
		if err := ex.Vector.Validate(); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		if ex.Label.Index() < 0 {
			return nil, fmt.Errorf("example %d: %w: unknown risk level %q", i, ErrInvalidDataset, ex.Label)
		}
		for j, value := range ex.Vector.Values {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("example %d: %w: non-finite %s", i, ErrInvalidDataset, features.Names()[j])
			}
		}
	}
	samples, labels := ds.Matrix()
	classes := len(risk.Levels)
	labelNames := make([]string, classes)
	for i, l := range risk.Levels {
		labelNames[i] = string(l)
	}

	split := validation.StratifiedSplit(labels, opts.TestFraction, opts.Seed)
	trainY := preprocess.Labels(labels, split.Train)
	testY := preprocess.Labels(labels, split.Test)
	if missing := absentClasses(trainY, labelNames); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingClass, strings.Join(missing, ", "))
	}
	clock.done("split")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainRaw := preprocess.Rows(samples, split.Train)
	cols, err := selection.Select(ctx, opts.Selection, trainRaw, trainY, classes, opts.NFeatures)
	if err != nil {
		return nil, fmt.Errorf("feature selection: %w", err)
	}
	allNames := features.Names()
	selected := make([]string, len(cols))
	for i, c := range cols {
		selected[i] = allNames[c]
	}
	trainSel := preprocess.Columns(trainRaw, cols)
	testSel := preprocess.Columns(preprocess.Rows(samples, split.Test), cols)
	clock.done("selection")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaler := preprocess.Fit(trainSel)
	trainX, err := scaler.TransformAll(trainSel)
	if err != nil {
		return nil, err
	}
	testX, err := scaler.TransformAll(testSel)
	if err != nil {
		return nil, err
	}
	clock.done("scaling")

	folds := validation.StratifiedKFold(trainY, opts.Folds, opts.Seed)
	params := opts.Classifier
	tried := 1
	var cv validation.Summary
	if opts.Search {
		res, err := search(ctx, trainSel, trainY, classes, folds, opts.Grid.Configs(), opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("hyperparameter search: %w", err)
		}
		params, cv, tried = res.best, res.summary, res.tried
		clock.done("search")
	} else {
		scores, err := validation.CrossValidate(ctx, trainSel, trainY, folds, opts.Workers, foldScorer(classes, params))
		if err != nil {
			return nil, fmt.Errorf("cross validation: %w", err)
		}
		cv = validation.Summarize(scores)
		clock.done("cross_validation")
	}

	weights, trainMetrics, err := linear.TrainSoftmax(ctx, trainX, trainY, classes, params)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	clock.done("fit")

	predicted := make([]int, len(testX))
	for i, x := range testX {
		predicted[i] = linear.Predict(weights, x)
	}
	report := validation.Evaluate(testY, predicted, labelNames)
	clock.done("evaluate")

	ranked := selection.Rank(linear.Importance(weights))
	importance := make([]artifact.FeatureScore, len(ranked))
	for i, r := range ranked {
		importance[i] = artifact.FeatureScore{Name: selected[r.Index], Score: r.Score}
	}

	distribution := ds.Distribution()
	a := &artifact.Artifact{
		ID:             uuid.New(),
		FeatureVersion: features.SchemaVersion,
		CreatedAt:      time.Now().UTC(),
		Labels:         labelNames,
		Features:       selected,
		Scaler:         scaler,
		Weights:        weights,
		Importance:     importance,
		Diagnostics: artifact.Diagnostics{
			Samples:           ds.Len(),
			TrainSamples:      len(split.Train),
			TestSamples:       len(split.Test),
			TrainAccuracy:     trainMetrics.Accuracy,
			TestAccuracy:      report.Accuracy,
			Test:              report,
			CrossValidation:   cv,
			Selection:         string(opts.Selection),
			BestParams:        params,
			SearchedConfigs:   tried,
			ClassDistribution: distribution,
			StageSeconds:      clock.seconds,
			Warnings:          imbalanceWarnings(distribution, ds.Len()),
		},
	}
	for _, w := range a.Diagnostics.Warnings {
		log.Warn(w)
	}
	log.WithFields(logrus.Fields{
		"artifact_id":   a.ID,
		"features":      len(selected),
		"test_accuracy": report.Accuracy,
		"cv_mean":       cv.Mean,
	}).Info("Training finished")
	return a, nil
}

// TrainAndSave trains and publishes the artifact. Nothing is written when
// training fails or ctx is cancelled before the save.
func TrainAndSave(ctx context.Context, store *artifact.Store, ds *Dataset, opts Options) (*artifact.Artifact, error) {
	a, err := Train(ctx, ds, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.Save(a); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	return a, nil
}

func absentClasses(labels []int, names []string) []string {
	seen := make([]bool, len(names))
	for _, l := range labels {
		seen[l] = true
	}
	var out []string
	for i, ok := range seen {
		if !ok {
			out = append(out, names[i])
		}
	}
	return out
}

// imbalanceWarnings flags classes under 10% or over 70% of the dataset.
func imbalanceWarnings(distribution map[string]int, total int) []string {
	var out []string
	for _, l := range risk.Levels {
		share := float64(distribution[string(l)]) / float64(total)
		switch {
		case share < 0.1:
			out = append(out, fmt.Sprintf("class %s is underrepresented (%.1f%%)", l, share*100))
		case share > 0.7:
			out = append(out, fmt.Sprintf("class %s dominates the dataset (%.1f%%)", l, share*100))
		}
	}
	return out
}
