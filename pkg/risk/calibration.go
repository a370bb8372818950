package risk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Calibration holds the weights and thresholds of the composite score.
// The defaults are hand-tuned values pending clinical review.
type Calibration struct {
	ClinicalFindings  []string `yaml:"clinical_findings" json:"clinical_findings"`
	ClinicalWeight    float64  `yaml:"clinical_weight" json:"clinical_weight"`
	ProtectiveFactors []string `yaml:"protective_factors" json:"protective_factors"`
	ProtectiveWeight  float64  `yaml:"protective_weight" json:"protective_weight"`
	DietaryFactors    []string `yaml:"dietary_factors" json:"dietary_factors"`
	DietaryWeight     float64  `yaml:"dietary_weight" json:"dietary_weight"`

	// HighFrequencyCut is the encoded daily frequency at which a dietary
	// factor earns HighFrequencyWeight on top of DietaryWeight.
	HighFrequencyCut    float64 `yaml:"high_frequency_cut" json:"high_frequency_cut"`
	HighFrequencyWeight float64 `yaml:"high_frequency_weight" json:"high_frequency_weight"`

	SpecialNeedsWeight float64 `yaml:"special_needs_weight" json:"special_needs_weight"`
	NoCaregiverWeight  float64 `yaml:"no_caregiver_weight" json:"no_caregiver_weight"`
	DMFTWeight         float64 `yaml:"dmft_weight" json:"dmft_weight"`

	BaseHighThreshold float64 `yaml:"base_high_threshold" json:"base_high_threshold"`
	MissingRecordStep float64 `yaml:"missing_record_step" json:"missing_record_step"`
	MinHighThreshold  float64 `yaml:"min_high_threshold" json:"min_high_threshold"`
	MediumMultiplier  float64 `yaml:"medium_multiplier" json:"medium_multiplier"`
}

// DefaultCalibration returns the weights used by the screening programme.
func DefaultCalibration() Calibration {
	return Calibration{
		ClinicalFindings: []string{
			"cavitated_lesions", "multiple_restorations", "missing_teeth",
			"enamel_change", "dentin_discoloration", "white_spot_lesions",
		},
		ClinicalWeight: 2,
		ProtectiveFactors: []string{
			"fluoride_water", "fluoride_toothpaste", "topical_fluoride",
			"regular_checkups", "sealed_pits",
		},
		ProtectiveWeight: 1,
		DietaryFactors: []string{
			"sweet_sugary_foods", "takeaways_processed_foods",
			"cold_drinks_juices", "processed_fruit", "added_sugars",
		},
		DietaryWeight:       1,
		HighFrequencyCut:    3,
		HighFrequencyWeight: 1,
		SpecialNeedsWeight:  2,
		NoCaregiverWeight:   1,
		DMFTWeight:          0.5,
		BaseHighThreshold:   8,
		MissingRecordStep:   2,
		MinHighThreshold:    4,
		MediumMultiplier:    0.65,
	}
}

// LoadCalibration reads a YAML calibration file. Keys absent from the file
// keep their default value; an empty path returns the defaults.
func LoadCalibration(path string) (Calibration, error) {
	cal := DefaultCalibration()
	if path == "" {
		return cal, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cal, fmt.Errorf("read calibration: %w", err)
	}
	if err := yaml.Unmarshal(content, &cal); err != nil {
		return DefaultCalibration(), fmt.Errorf("parse calibration: %w", err)
	}
	if err := cal.validate(); err != nil {
		return DefaultCalibration(), err
	}
	return cal, nil
}

func (c Calibration) validate() error {
	if c.BaseHighThreshold <= 0 {
		return errors.New("calibration: base_high_threshold must be positive")
	}
	if c.MinHighThreshold > c.BaseHighThreshold {
		return errors.New("calibration: min_high_threshold exceeds base_high_threshold")
	}
	if c.MissingRecordStep < 0 {
		return errors.New("calibration: missing_record_step must not be negative")
	}
	if c.MediumMultiplier <= 0 || c.MediumMultiplier >= 1 {
		return errors.New("calibration: medium_multiplier must be in (0,1)")
	}
	return nil
}
