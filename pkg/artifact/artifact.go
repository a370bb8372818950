package artifact

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/linear"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/validation"
)

var (
	ErrNotFound = errors.New("model artifact not found")
	ErrCorrupt  = errors.New("model artifact is corrupt")
)

// FeatureScore is one entry of the importance ranking.
type FeatureScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Diagnostics struct {
	Samples           int                `json:"samples"`
	TrainSamples      int                `json:"train_samples"`
	TestSamples       int                `json:"test_samples"`
	TrainAccuracy     float64            `json:"train_accuracy"`
	TestAccuracy      float64            `json:"test_accuracy"`
	Test              validation.Report  `json:"test_report"`
	CrossValidation   validation.Summary `json:"cross_validation"`
	Selection         string             `json:"feature_selection"`
	BestParams        linear.Options     `json:"best_params"`
	SearchedConfigs   int                `json:"searched_configs"`
	ClassDistribution map[string]int     `json:"class_distribution"`
	StageSeconds      map[string]float64 `json:"stage_seconds"`
	Warnings          []string           `json:"warnings,omitempty"`
}

// Artifact is an immutable trained model. It is replaced as a whole on
// retraining and never mutated after Save.
type Artifact struct {
	ID             uuid.UUID         `json:"id"`
	FeatureVersion string            `json:"feature_version"`
	CreatedAt      time.Time         `json:"created_at"`
	Labels         []string          `json:"labels"`
	Features       []string          `json:"features"`
	Scaler         preprocess.Scaler `json:"-"`
	Weights        linear.Weights    `json:"weights"`
	Importance     []FeatureScore    `json:"importance"`
	Diagnostics    Diagnostics       `json:"diagnostics"`
}

// Validate checks that the parts of the artifact agree with each other.
func (a *Artifact) Validate() error {
	width := len(a.Features)
	switch {
	case a.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrCorrupt)
	case width == 0:
		return fmt.Errorf("%w: no features", ErrCorrupt)
	case a.Scaler.Width() != width || len(a.Scaler.Scale) != width:
		return fmt.Errorf("%w: scaler width %d, features %d", ErrCorrupt, a.Scaler.Width(), width)
	case a.Weights.Features() != width:
		return fmt.Errorf("%w: classifier width %d, features %d", ErrCorrupt, a.Weights.Features(), width)
	case a.Weights.Classes() != len(a.Labels) || len(a.Weights.Coefficients) != len(a.Labels):
		return fmt.Errorf("%w: %d classes for %d labels", ErrCorrupt, a.Weights.Classes(), len(a.Labels))
	}
	for _, s := range a.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("%w: zero scale", ErrCorrupt)
		}
	}
	if !finite(a.Scaler.Mean) || !finite(a.Scaler.Scale) {
		return fmt.Errorf("%w: non-finite scaler values", ErrCorrupt)
	}
	if !finite(a.Weights.Bias) {
		return fmt.Errorf("%w: non-finite classifier bias", ErrCorrupt)
	}
	for _, row := range a.Weights.Coefficients {
		if !finite(row) {
			return fmt.Errorf("%w: non-finite classifier coefficients", ErrCorrupt)
		}
	}
	known := make(map[string]bool, width)
	for _, f := range a.Features {
		if known[f] {
			return fmt.Errorf("%w: duplicate feature %s", ErrCorrupt, f)
		}
		known[f] = true
	}
	for _, imp := range a.Importance {
		if !known[imp.Name] {
			return fmt.Errorf("%w: importance for unselected feature %s", ErrCorrupt, imp.Name)
		}
	}
	return nil
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// TopFeatures returns up to n names from the importance ranking.
func (a *Artifact) TopFeatures(n int) []string {
	if n <= 0 || n > len(a.Importance) {
		n = len(a.Importance)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = a.Importance[i].Name
	}
	return out
}
