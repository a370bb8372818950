package features

// Extract encodes the screening records into a vector of the current
// schema. Either record may be nil; every feature of a missing record is 0
// and its completeness flag is cleared. Extract never fails.
func Extract(dental *DentalScreening, dietary *DietaryScreening) Vector {
	v := NewVector()
	if dental != nil {
		extractDental(&v, dental)
	}
	if dietary != nil {
		extractDietary(&v, dietary)
	}
	return v
}

func extractDental(v *Vector, d *DentalScreening) {
	v.set(HasDentalData, 1)
	for name, answer := range d.answerFields() {
		v.set(name, EncodeYesNo(*answer))
	}

	income := NormalizeAnswer(d.Income)
	for _, bucket := range IncomeBuckets {
		if income == bucket {
			v.set(IncomeFeature(bucket), 1)
		}
	}

	dmft := ScoreDMFT(d.TeethData)
	v.set(DMFTDecayed, float64(dmft.Decayed))
	v.set(DMFTMissing, float64(dmft.Missing))
	v.set(DMFTFilled, float64(dmft.Filled))
	v.set(TotalDMFT, float64(dmft.Total()))
}

func extractDietary(v *Vector, d *DietaryScreening) {
	v.set(HasDietaryData, 1)
	for _, cat := range DietaryCategories {
		item, ok := d.Items[cat.Name]
		if !ok {
			continue
		}
		v.set(cat.Name, EncodeYesNo(item.Consumes))
		v.set(cat.Name+"_daily", EncodeFrequency(item.Daily))
		v.set(cat.Name+"_weekly", EncodeFrequency(item.Weekly))
		if cat.HasTiming {
			v.set(cat.Name+"_timing", EncodeFrequency(item.Timing))
		}
		if cat.HasBedtime {
			v.set(cat.Name+"_bedtime", EncodeYesNo(item.Bedtime))
		}
	}
	v.set("water", EncodeYesNo(d.Water.Drinks))
	v.set("water_timing", EncodeFrequency(d.Water.Timing))
	v.set("water_glasses", EncodeFrequency(d.Water.Glasses))
}
