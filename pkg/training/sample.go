package training

import (
	"math/rand"
	"strconv"

	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
)

var (
	sampleTeeth     = []string{"A", "A", "A", "A", "A", "A", "A", "A", "B", "B", "C", "D"}
	sampleFrequency = []string{"never", "1-3_day", "4-6_day", "daily"}
	sampleWeekly    = []string{"never", "1-3_week", "4-6_week"}
	sampleTiming    = []string{"with_meals", "between_meals", "before_bedtime"}
	sampleGlasses   = []string{"<2", "2-4", "4-6", ">6"}
)

// GenerateSample builds n synthetic patients and labels them with the rule
// calculator. Each patient draws a propensity that biases risk answers
// towards yes and protective answers towards no, so all levels occur.
func GenerateSample(n int, seed int64, calc *risk.Calculator) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	protective := map[string]bool{}
	for _, name := range calc.Calibration().ProtectiveFactors {
		protective[name] = true
	}
	ds := &Dataset{}
	for i := 0; i < n; i++ {
		p := 0.05 + 0.6*rng.Float64()
		var dental *features.DentalScreening
		var dietary *features.DietaryScreening
		if rng.Float64() < 0.9 {
			dental = sampleDental(rng, p, protective)
		}
		if rng.Float64() < 0.85 {
			dietary = sampleDietary(rng, p)
		}
		v := features.Extract(dental, dietary)
		ds.Add(v, calc.Classify(v, risk.Options{}))
	}
	return ds
}

func yesNo(rng *rand.Rand, p float64) string {
	if rng.Float64() < p {
		return "yes"
	}
	return "no"
}

func sampleDental(rng *rand.Rand, p float64, protective map[string]bool) *features.DentalScreening {
	d := &features.DentalScreening{
		Income:    features.IncomeBuckets[rng.Intn(len(features.IncomeBuckets))],
		TeethData: map[string]string{},
	}
	for _, name := range features.DentalBinary {
		q := p
		if protective[name] || name == "caregiver_treatment" || name == "sa_citizen" {
			q = 1 - p
		}
		d.SetAnswer(name, yesNo(rng, q))
	}
	for tooth := 1; tooth <= 20; tooth++ {
		code := "A"
		if rng.Float64() < p {
			code = sampleTeeth[rng.Intn(len(sampleTeeth))]
		}
		d.TeethData[strconv.Itoa(tooth)] = code
	}
	return d
}

func sampleDietary(rng *rand.Rand, p float64) *features.DietaryScreening {
	d := &features.DietaryScreening{Items: map[string]features.DietaryItem{}}
	for _, cat := range features.DietaryCategories {
		consumes := yesNo(rng, p+0.2)
		item := features.DietaryItem{Consumes: consumes}
		if consumes == "yes" {
			item.Daily = sampleFrequency[rng.Intn(len(sampleFrequency))]
			item.Weekly = sampleWeekly[rng.Intn(len(sampleWeekly))]
			if cat.HasTiming {
				item.Timing = sampleTiming[rng.Intn(len(sampleTiming))]
			}
			if cat.HasBedtime {
				item.Bedtime = yesNo(rng, p)
			}
		}
		d.Items[cat.Name] = item
	}
	d.Water = features.WaterIntake{
		Drinks:  yesNo(rng, 0.8),
		Timing:  sampleTiming[rng.Intn(len(sampleTiming))],
		Glasses: sampleGlasses[rng.Intn(len(sampleGlasses))],
	}
	return d
}
