package features

// SchemaVersion identifies the feature order produced by Extract. Any change
// to the name list below needs a new version and a retrained model.
const SchemaVersion = "2"

const (
	HasDentalData  = "has_dental_data"
	HasDietaryData = "has_dietary_data"
	TotalDMFT      = "total_dmft_score"
	DMFTDecayed    = "dmft_decayed"
	DMFTMissing    = "dmft_missing"
	DMFTFilled     = "dmft_filled"
)

// DentalBinary lists the dental yes/no answers in schema order.
var DentalBinary = []string{
	"sa_citizen", "special_needs", "caregiver_treatment",
	"sugar_meals", "sugar_snacks", "sugar_beverages",
	"appliance", "plaque", "dry_mouth", "enamel_defects",
	"fluoride_water", "fluoride_toothpaste", "topical_fluoride",
	"regular_checkups", "sealed_pits", "restorative_procedures",
	"enamel_change", "dentin_discoloration", "white_spot_lesions",
	"cavitated_lesions", "multiple_restorations", "missing_teeth",
}

// IncomeBuckets are the accepted household income codes, one-hot encoded.
var IncomeBuckets = []string{
	"0", "1-2500", "2501-5000", "5000-10000",
	"10001-20000", "20001-40000", "40001-70000", "70001+",
}

// DietaryCategory describes which questions the form asks for a category.
type DietaryCategory struct {
	Name       string
	HasTiming  bool
	HasBedtime bool
}

// DietaryCategories are the food and drink sections of the dietary form.
var DietaryCategories = []DietaryCategory{
	{Name: "sweet_sugary_foods", HasTiming: true, HasBedtime: true},
	{Name: "takeaways_processed_foods"},
	{Name: "fresh_fruit", HasTiming: true, HasBedtime: true},
	{Name: "cold_drinks_juices", HasTiming: true, HasBedtime: true},
	{Name: "processed_fruit", HasTiming: true, HasBedtime: true},
	{Name: "spreads", HasTiming: true, HasBedtime: true},
	{Name: "added_sugars", HasTiming: true, HasBedtime: true},
	{Name: "salty_snacks", HasTiming: true},
	{Name: "dairy_products"},
	{Name: "vegetables"},
	{Name: "xylitol_products"},
}

var (
	names []string
	index map[string]int
)

func init() {
	names = buildNames()
	index = make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
}

func buildNames() []string {
	out := []string{HasDentalData, HasDietaryData}
	out = append(out, DentalBinary...)
	for _, bucket := range IncomeBuckets {
		out = append(out, IncomeFeature(bucket))
	}
	out = append(out, DMFTDecayed, DMFTMissing, DMFTFilled, TotalDMFT)
	for _, cat := range DietaryCategories {
		out = append(out, cat.Name, cat.Name+"_daily", cat.Name+"_weekly")
		if cat.HasTiming {
			out = append(out, cat.Name+"_timing")
		}
		if cat.HasBedtime {
			out = append(out, cat.Name+"_bedtime")
		}
	}
	out = append(out, "water", "water_timing", "water_glasses")
	return out
}

// IncomeFeature returns the one-hot feature name for an income bucket code.
func IncomeFeature(bucket string) string {
	key := make([]byte, 0, len(bucket)+12)
	key = append(key, "income_"...)
	for i := 0; i < len(bucket); i++ {
		switch bucket[i] {
		case '-':
			key = append(key, '_')
		case '+':
			key = append(key, "_plus"...)
		default:
			key = append(key, bucket[i])
		}
	}
	return string(key)
}

// Names returns a copy of the feature names in schema order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Len is the number of features in the current schema.
func Len() int {
	return len(names)
}

// Index returns the position of a feature in the schema.
func Index(name string) (int, bool) {
	i, ok := index[name]
	return i, ok
}
