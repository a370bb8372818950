package features

// DentalScreening is the dental questionnaire and charting captured for one
// patient. Answers are the raw form values ("yes"/"no", income bucket codes);
// TeethData maps a tooth identifier to its condition code.
type DentalScreening struct {
	SACitizen            string `json:"sa_citizen"`
	SpecialNeeds         string `json:"special_needs"`
	CaregiverTreatment   string `json:"caregiver_treatment"`
	Income               string `json:"income"`
	SugarMeals           string `json:"sugar_meals"`
	SugarSnacks          string `json:"sugar_snacks"`
	SugarBeverages       string `json:"sugar_beverages"`
	Appliance            string `json:"appliance"`
	Plaque               string `json:"plaque"`
	DryMouth             string `json:"dry_mouth"`
	EnamelDefects        string `json:"enamel_defects"`
	FluorideWater        string `json:"fluoride_water"`
	FluorideToothpaste   string `json:"fluoride_toothpaste"`
	TopicalFluoride      string `json:"topical_fluoride"`
	RegularCheckups      string `json:"regular_checkups"`
	SealedPits           string `json:"sealed_pits"`
	RestorativeProcedure string `json:"restorative_procedures"`
	EnamelChange         string `json:"enamel_change"`
	DentinDiscoloration  string `json:"dentin_discoloration"`
	WhiteSpotLesions     string `json:"white_spot_lesions"`
	CavitatedLesions     string `json:"cavitated_lesions"`
	MultipleRestorations string `json:"multiple_restorations"`
	MissingTeeth         string `json:"missing_teeth"`

	TeethData map[string]string `json:"teeth_data"`
}

// answerFields maps each yes/no feature name to its answer field.
func (d *DentalScreening) answerFields() map[string]*string {
	return map[string]*string{
		"sa_citizen":             &d.SACitizen,
		"special_needs":          &d.SpecialNeeds,
		"caregiver_treatment":    &d.CaregiverTreatment,
		"sugar_meals":            &d.SugarMeals,
		"sugar_snacks":           &d.SugarSnacks,
		"sugar_beverages":        &d.SugarBeverages,
		"appliance":              &d.Appliance,
		"plaque":                 &d.Plaque,
		"dry_mouth":              &d.DryMouth,
		"enamel_defects":         &d.EnamelDefects,
		"fluoride_water":         &d.FluorideWater,
		"fluoride_toothpaste":    &d.FluorideToothpaste,
		"topical_fluoride":       &d.TopicalFluoride,
		"regular_checkups":       &d.RegularCheckups,
		"sealed_pits":            &d.SealedPits,
		"restorative_procedures": &d.RestorativeProcedure,
		"enamel_change":          &d.EnamelChange,
		"dentin_discoloration":   &d.DentinDiscoloration,
		"white_spot_lesions":     &d.WhiteSpotLesions,
		"cavitated_lesions":      &d.CavitatedLesions,
		"multiple_restorations":  &d.MultipleRestorations,
		"missing_teeth":          &d.MissingTeeth,
	}
}

// SetAnswer sets the yes/no answer for a dental feature. It reports false
// when name is not a dental question.
func (d *DentalScreening) SetAnswer(name, value string) bool {
	f, ok := d.answerFields()[name]
	if ok {
		*f = value
	}
	return ok
}

// DietaryItem holds the answers for one food or drink category.
// Timing and Bedtime are only asked for some categories.
type DietaryItem struct {
	Consumes string `json:"consumes"`
	Daily    string `json:"daily,omitempty"`
	Weekly   string `json:"weekly,omitempty"`
	Timing   string `json:"timing,omitempty"`
	Bedtime  string `json:"bedtime,omitempty"`
}

// WaterIntake is answered separately from the food categories.
type WaterIntake struct {
	Drinks  string `json:"drinks"`
	Timing  string `json:"timing,omitempty"`
	Glasses string `json:"glasses,omitempty"`
}

// DietaryScreening is the dietary questionnaire for one patient.
type DietaryScreening struct {
	Items map[string]DietaryItem `json:"items"`
	Water WaterIntake            `json:"water"`
}
