package predictor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/CS-UWC/OralSmart-sub001/pkg/artifact"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/linear"
	"github.com/CS-UWC/OralSmart-sub001/pkg/observability/metrics"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
)

type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Diagnostic codes explain why predictions fall back to the rules.
const (
	NotTrained      = "not_trained"
	CorruptArtifact = "corrupt_artifact"
	VersionMismatch = "version_mismatch"
)

var ErrVersionMismatch = errors.New("artifact feature version does not match extractor")

// Prediction is the uniform result of both prediction paths. Fallback
// predictions carry a one-hot distribution on the rule label with
// confidence 1.
type Prediction struct {
	RiskLevel     risk.Level         `json:"risk_level"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	TopFactors    []string           `json:"top_factors"`
	Source        Source             `json:"source"`
	Diagnostic    string             `json:"diagnostic,omitempty"`
	ModelID       string             `json:"model_id,omitempty"`
}

type Status struct {
	Mode           Source    `json:"mode"`
	Diagnostic     string    `json:"diagnostic,omitempty"`
	Error          string    `json:"error,omitempty"`
	ModelID        string    `json:"model_id,omitempty"`
	FeatureVersion string    `json:"feature_version"`
	Features       int       `json:"features"`
	TestAccuracy   float64   `json:"test_accuracy,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// Loader reads the published artifact; artifact.Store implements it.
type Loader interface {
	Load() (*artifact.Artifact, error)
}

// state is immutable once published.
type state struct {
	model   *artifact.Artifact
	columns []int
	status  Status
}

// Predictor serves predictions against the current state. The state is
// swapped as a whole, so a Predict call sees one artifact from start to end.
type Predictor struct {
	loader  Loader
	calc    *risk.Calculator
	topN    int
	current atomic.Pointer[state]
}

// New starts in fallback mode; call Reload to pick up a stored artifact.
func New(loader Loader, calc *risk.Calculator, topN int) *Predictor {
	if topN <= 0 {
		topN = 5
	}
	p := &Predictor{loader: loader, calc: calc, topN: topN}
	p.current.Store(fallbackState(NotTrained, nil))
	return p
}

func fallbackState(code string, err error) *state {
	st := &state{status: Status{
		Mode:           SourceFallback,
		Diagnostic:     code,
		FeatureVersion: features.SchemaVersion,
		Features:       features.Len(),
		LoadedAt:       time.Now().UTC(),
	}}
	if err != nil {
		st.status.Error = err.Error()
	}
	return st
}

// compile checks a into a servable state.
func compile(a *artifact.Artifact) (*state, error) {
	if a.FeatureVersion != features.SchemaVersion {
		return nil, fmt.Errorf("%w: artifact %q, extractor %q", ErrVersionMismatch, a.FeatureVersion, features.SchemaVersion)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	columns := make([]int, len(a.Features))
	for i, name := range a.Features {
		idx, ok := features.Index(name)
		if !ok {
			return nil, fmt.Errorf("%w: %w %s", artifact.ErrCorrupt, features.ErrUnknownFeature, name)
		}
		columns[i] = idx
	}
	return &state{
		model:   a,
		columns: columns,
		status: Status{
			Mode:           SourceModel,
			ModelID:        a.ID.String(),
			FeatureVersion: a.FeatureVersion,
			Features:       len(a.Features),
			TestAccuracy:   a.Diagnostics.TestAccuracy,
			LoadedAt:       time.Now().UTC(),
		},
	}, nil
}

// Reload re-reads the store and publishes the result. A missing, corrupt
// or mismatched artifact switches predictions to the rule fallback.
func (p *Predictor) Reload() Status {
	var next *state
	if p.loader == nil {
		next = fallbackState(NotTrained, nil)
	} else if a, err := p.loader.Load(); err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			next = fallbackState(NotTrained, nil)
		} else {
			next = fallbackState(CorruptArtifact, err)
		}
	} else if st, err := compile(a); err != nil {
		if errors.Is(err, ErrVersionMismatch) {
			next = fallbackState(VersionMismatch, err)
		} else {
			next = fallbackState(CorruptArtifact, err)
		}
	} else {
		next = st
	}
	p.current.Store(next)
	metrics.ObserveReload(next.status.Mode == SourceModel)
	p.logStatus(next.status)
	return next.status
}

// Install publishes an in-memory artifact. An unusable artifact is
// rejected and the current state is kept.
func (p *Predictor) Install(a *artifact.Artifact) error {
	st, err := compile(a)
	if err != nil {
		return err
	}
	p.current.Store(st)
	metrics.ObserveReload(true)
	p.logStatus(st.status)
	return nil
}

func (p *Predictor) Status() Status {
	return p.current.Load().status
}

func (p *Predictor) logStatus(st Status) {
	entry := logger.WithFields(map[string]interface{}{
		"mode":       st.Mode,
		"model_id":   st.ModelID,
		"diagnostic": st.Diagnostic,
	})
	if st.Mode == SourceFallback {
		entry.WithField("error", st.Error).Warn("Predictions using rule-based fallback")
		return
	}
	entry.Info("Model artifact loaded")
}

// Predict never fails for lack of a model. It only returns an error for a
// vector from a different schema.
func (p *Predictor) Predict(v features.Vector, opts risk.Options) (Prediction, error) {
	if err := v.Validate(); err != nil {
		metrics.ObserveMalformedInput()
		return Prediction{}, err
	}
	st := p.current.Load()
	var pred Prediction
	if st.model != nil {
		pred = p.modelPredict(st, v)
	} else {
		pred = p.fallbackPredict(st, v, opts)
	}
	metrics.ObservePrediction(string(pred.Source))
	return pred, nil
}

func (p *Predictor) modelPredict(st *state, v features.Vector) Prediction {
	a := st.model
	sample := make([]float64, len(st.columns))
	for i, c := range st.columns {
		sample[i] = v.Values[c]
	}
	// widths were checked by compile
	scaled, _ := a.Scaler.Transform(sample)
	probs := linear.PredictProba(a.Weights, scaled)

	best := 0
	out := make(map[string]float64, len(probs))
	for k, prob := range probs {
		out[a.Labels[k]] = prob
		if prob > probs[best] {
			best = k
		}
	}
	level, err := risk.ParseLevel(a.Labels[best])
	if err != nil {
		level = risk.LevelAt(best)
	}
	return Prediction{
		RiskLevel:     level,
		Confidence:    probs[best],
		Probabilities: out,
		TopFactors:    a.TopFeatures(p.topN),
		Source:        SourceModel,
		ModelID:       st.status.ModelID,
	}
}

func (p *Predictor) fallbackPredict(st *state, v features.Vector, opts risk.Options) Prediction {
	res := p.calc.Score(v, opts)
	probs := make(map[string]float64, len(risk.Levels))
	for _, l := range risk.Levels {
		probs[string(l)] = 0
	}
	probs[string(res.Level)] = 1

	ranked := res.RankedFactors(p.topN)
	factors := make([]string, len(ranked))
	for i, c := range ranked {
		factors[i] = c.Feature
	}
	logger.WithField("diagnostic", st.status.Diagnostic).Debug("Rule-based fallback prediction")
	return Prediction{
		RiskLevel:     res.Level,
		Confidence:    1,
		Probabilities: probs,
		TopFactors:    factors,
		Source:        SourceFallback,
		Diagnostic:    st.status.Diagnostic,
	}
}
