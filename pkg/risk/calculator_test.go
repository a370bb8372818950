package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorWith(t *testing.T, values map[string]float64) features.Vector {
	t.Helper()
	v := features.NewVector()
	all := v.ToMap()
	for name, value := range values {
		_, ok := features.Index(name)
		require.Truef(t, ok, "unknown feature %s", name)
		all[name] = value
	}
	out, err := features.FromMap(all)
	require.NoError(t, err)
	return out
}

func defaultScore(v features.Vector) Result {
	return NewCalculator(DefaultCalibration()).Score(v, Options{})
}

func TestHighDecayOverride(t *testing.T) {
	v := vectorWith(t, map[string]float64{
		features.HasDentalData:  1,
		features.HasDietaryData: 1,
		"fluoride_water":        1,
		"fluoride_toothpaste":   1,
		"topical_fluoride":      1,
		"regular_checkups":      1,
		"sealed_pits":           1,
		"caregiver_treatment":   1,
		features.TotalDMFT:      10,
	})
	calc := NewCalculator(DefaultCalibration())

	res := calc.Score(v, Options{MinDMFT: Float(8)})
	assert.Equal(t, High, res.Level)
	assert.True(t, res.DMFTOverride)

	// Without the override the protective factors keep it below high.
	res = calc.Score(v, Options{})
	assert.False(t, res.DMFTOverride)
	assert.Equal(t, Low, res.Level)
	assert.InDelta(t, 0.0, res.Score, 1e-9)
}

func TestZeroCompleteness(t *testing.T) {
	v := features.Extract(nil, nil)
	res := NewCalculator(DefaultCalibration()).Score(v, Options{})
	assert.Equal(t, Low, res.Level)
	assert.Equal(t, 0, res.Completeness)
	assert.Equal(t, 4.0, res.HighThreshold)
	assert.InDelta(t, 2.6, res.MediumThreshold, 1e-9)
}

func TestModerateCompositeFullCompleteness(t *testing.T) {
	v := vectorWith(t, map[string]float64{
		features.HasDentalData:  1,
		features.HasDietaryData: 1,
		"cavitated_lesions":     1,
		"enamel_change":         1,
		"white_spot_lesions":    1,
		"fluoride_toothpaste":   1,
		"caregiver_treatment":   1,
		features.TotalDMFT:      2,
	})
	res := defaultScore(v)
	assert.InDelta(t, 6.0, res.Score, 1e-9)
	assert.Equal(t, 8.0, res.HighThreshold)
	assert.InDelta(t, 5.2, res.MediumThreshold, 1e-9)
	assert.Equal(t, Medium, res.Level)
}

func TestDietaryHighFrequency(t *testing.T) {
	v := vectorWith(t, map[string]float64{
		features.HasDietaryData:    1,
		"caregiver_treatment":      1,
		"sweet_sugary_foods":       1,
		"sweet_sugary_foods_daily": 3,
		"cold_drinks_juices":       1,
		"cold_drinks_juices_daily": 2,
		"spreads":                  1,
	})
	res := defaultScore(v)
	assert.InDelta(t, 3.0, res.Score, 1e-9)
	assert.Equal(t, 6.0, res.HighThreshold)
	assert.Equal(t, Low, res.Level)
}

func TestSocialFactors(t *testing.T) {
	v := vectorWith(t, map[string]float64{features.HasDentalData: 1, "special_needs": 1})
	res := defaultScore(v)
	assert.InDelta(t, 3.0, res.Score, 1e-9)
	assert.Equal(t, []Contribution{
		{Feature: "special_needs", Points: 2},
		{Feature: "caregiver_treatment", Points: 1},
	}, res.RankedFactors(0))
}

func TestThresholdsMonotonicInCompleteness(t *testing.T) {
	calc := NewCalculator(DefaultCalibration())
	prevHigh, prevMedium := calc.Thresholds(2, nil)
	for completeness := 1; completeness >= 0; completeness-- {
		high, medium := calc.Thresholds(completeness, nil)
		assert.LessOrEqual(t, high, prevHigh)
		assert.LessOrEqual(t, medium, prevMedium)
		prevHigh, prevMedium = high, medium
	}

	for _, score := range []float64{0, 2.6, 3.9, 4, 5.2, 6, 8} {
		full := levelFor(calc, score, 2)
		for _, c := range []int{1, 0} {
			assert.GreaterOrEqual(t, levelFor(calc, score, c).Index(), full.Index())
		}
	}
}

func levelFor(calc *Calculator, score float64, completeness int) Level {
	high, medium := calc.Thresholds(completeness, nil)
	switch {
	case score >= high:
		return High
	case score >= medium:
		return Medium
	}
	return Low
}

func TestExplicitRiskThreshold(t *testing.T) {
	calc := NewCalculator(DefaultCalibration())
	high, medium := calc.Thresholds(0, Float(15))
	assert.Equal(t, 15.0, high)
	assert.InDelta(t, 9.75, medium, 1e-9)
}

func TestScoreDeterministic(t *testing.T) {
	v := features.Extract(&features.DentalScreening{Plaque: "yes", TeethData: map[string]string{"1": "1"}}, nil)
	first := defaultScore(v)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, defaultScore(v))
	}
}

func TestLoadCalibration(t *testing.T) {
	cal, err := LoadCalibration("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCalibration(), cal)

	path := filepath.Join(t.TempDir(), "calibration.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_high_threshold: 10\nmedium_multiplier: 0.5\n"), 0o644))
	cal, err = LoadCalibration(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cal.BaseHighThreshold)
	assert.Equal(t, 0.5, cal.MediumMultiplier)
	assert.Equal(t, DefaultCalibration().ClinicalFindings, cal.ClinicalFindings)

	require.NoError(t, os.WriteFile(path, []byte("medium_multiplier: 2\n"), 0o644))
	_, err = LoadCalibration(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel(" High ")
	require.NoError(t, err)
	assert.Equal(t, High, level)
	assert.Equal(t, 2, level.Index())
	_, err = ParseLevel("severe")
	assert.Error(t, err)
}
