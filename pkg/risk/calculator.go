package risk

import (
	"sort"

	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
)

// Options carries the optional per-call overrides. A nil field means unset.
type Options struct {
	// MinDMFT classifies high immediately when the decay index reaches it.
	MinDMFT *float64 `json:"min_dmft,omitempty"`
	// RiskThreshold replaces the completeness-based high threshold.
	RiskThreshold *float64 `json:"risk_threshold,omitempty"`
}

// Contribution is the number of points one feature added to the score.
type Contribution struct {
	Feature string  `json:"feature"`
	Points  float64 `json:"points"`
}

// Result is the outcome of a rule-based classification.
type Result struct {
	Level           Level          `json:"level"`
	Score           float64        `json:"score"`
	HighThreshold   float64        `json:"high_threshold"`
	MediumThreshold float64        `json:"medium_threshold"`
	Completeness    int            `json:"completeness"`
	DMFTOverride    bool           `json:"dmft_override"`
	Contributions   []Contribution `json:"contributions"`
}

// Calculator scores feature vectors with a fixed calibration. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	cal Calibration
}

func NewCalculator(cal Calibration) *Calculator {
	return &Calculator{cal: cal}
}

// Calibration returns the weights in use.
func (c *Calculator) Calibration() Calibration {
	return c.cal
}

// Classify is Score reduced to the level.
func (c *Calculator) Classify(v features.Vector, opts Options) Level {
	return c.Score(v, opts).Level
}

// Score computes the composite score and classifies it.
func (c *Calculator) Score(v features.Vector, opts Options) Result {
	dmft := v.Get(features.TotalDMFT)
	completeness := features.Completeness(v)

	if opts.MinDMFT != nil && dmft >= *opts.MinDMFT {
		high, medium := c.Thresholds(completeness, opts.RiskThreshold)
		return Result{
			Level:           High,
			Score:           dmft * c.cal.DMFTWeight,
			HighThreshold:   high,
			MediumThreshold: medium,
			Completeness:    completeness,
			DMFTOverride:    true,
			Contributions:   []Contribution{{Feature: features.TotalDMFT, Points: dmft * c.cal.DMFTWeight}},
		}
	}

	var (
		score         float64
		contributions []Contribution
	)
	add := func(feature string, points float64) {
		if points == 0 {
			return
		}
		score += points
		contributions = append(contributions, Contribution{Feature: feature, Points: points})
	}

	for _, name := range c.cal.ClinicalFindings {
		if v.Get(name) == 1 {
			add(name, c.cal.ClinicalWeight)
		}
	}
	for _, name := range c.cal.ProtectiveFactors {
		if v.Get(name) == 1 {
			add(name, -c.cal.ProtectiveWeight)
		}
	}
	for _, name := range c.cal.DietaryFactors {
		if v.Get(name) == 1 {
			add(name, c.cal.DietaryWeight)
		}
	}
	for _, name := range c.cal.DietaryFactors {
		daily := name + "_daily"
		if v.Get(daily) >= c.cal.HighFrequencyCut {
			add(daily, c.cal.HighFrequencyWeight)
		}
	}
	if v.Get("special_needs") == 1 {
		add("special_needs", c.cal.SpecialNeedsWeight)
	}
	if v.Get("caregiver_treatment") == 0 {
		add("caregiver_treatment", c.cal.NoCaregiverWeight)
	}
	add(features.TotalDMFT, dmft*c.cal.DMFTWeight)

	high, medium := c.Thresholds(completeness, opts.RiskThreshold)
	level := Low
	switch {
	case score >= high:
		level = High
	case score >= medium:
		level = Medium
	}

	return Result{
		Level:           level,
		Score:           score,
		HighThreshold:   high,
		MediumThreshold: medium,
		Completeness:    completeness,
		Contributions:   contributions,
	}
}

// Thresholds returns the high and medium cut-offs. An explicit threshold
// wins; otherwise the base threshold drops by one step per missing record
// type, never below the floor.
func (c *Calculator) Thresholds(completeness int, explicit *float64) (high, medium float64) {
	if explicit != nil {
		high = *explicit
	} else {
		missing := 2 - completeness
		if missing < 0 {
			missing = 0
		}
		high = c.cal.BaseHighThreshold - c.cal.MissingRecordStep*float64(missing)
		if high < c.cal.MinHighThreshold {
			high = c.cal.MinHighThreshold
		}
	}
	return high, high * c.cal.MediumMultiplier
}

// RankedFactors returns the features that raised the score, largest
// contribution first and by name on ties.
func (r Result) RankedFactors(limit int) []Contribution {
	out := make([]Contribution, 0, len(r.Contributions))
	for _, c := range r.Contributions {
		if c.Points > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Feature < out[j].Feature
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var defaultCalculator = NewCalculator(DefaultCalibration())

// Classify scores a vector with the default calibration.
func Classify(v features.Vector, opts Options) Level {
	return defaultCalculator.Classify(v, opts)
}

// Float is a helper for filling Options.
func Float(v float64) *float64 {
	return &v
}
