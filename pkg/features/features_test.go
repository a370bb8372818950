package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTotality(t *testing.T) {
	dental := &DentalScreening{SpecialNeeds: "yes", TeethData: map[string]string{"11": "1"}}
	dietary := &DietaryScreening{Items: map[string]DietaryItem{"spreads": {Consumes: "yes"}}}

	cases := []struct {
		name        string
		dental      *DentalScreening
		dietary     *DietaryScreening
		wantDental  float64
		wantDietary float64
	}{
		{"none", nil, nil, 0, 0},
		{"dental only", dental, nil, 1, 0},
		{"dietary only", nil, dietary, 0, 1},
		{"both", dental, dietary, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Extract(tc.dental, tc.dietary)
			require.NoError(t, v.Validate())
			assert.Len(t, v.Values, Len())
			assert.Equal(t, tc.wantDental, v.Get(HasDentalData))
			assert.Equal(t, tc.wantDietary, v.Get(HasDietaryData))
			assert.Equal(t, int(tc.wantDental+tc.wantDietary), Completeness(v))
		})
	}
}

func TestExtractEmptyRecordsAreZero(t *testing.T) {
	v := Extract(nil, nil)
	for i, value := range v.Values {
		assert.Zerof(t, value, "feature %s", Names()[i])
	}
}

func TestExtractDental(t *testing.T) {
	v := Extract(&DentalScreening{
		Plaque:             " YES ",
		FluorideToothpaste: "no",
		CavitatedLesions:   "maybe",
		Income:             "70001+",
		TeethData:          map[string]string{"t11": "1", "t12": "C", "t21": "D", "t22": "0"},
	}, nil)

	assert.Equal(t, 1.0, v.Get("plaque"))
	assert.Equal(t, 0.0, v.Get("fluoride_toothpaste"))
	assert.Equal(t, 0.0, v.Get("cavitated_lesions"))
	assert.Equal(t, 1.0, v.Get("income_70001_plus"))
	assert.Equal(t, 0.0, v.Get("income_0"))
	assert.Equal(t, 1.0, v.Get(DMFTDecayed))
	assert.Equal(t, 1.0, v.Get(DMFTFilled))
	assert.Equal(t, 1.0, v.Get(DMFTMissing))
	assert.Equal(t, 3.0, v.Get(TotalDMFT))
}

func TestExtractDietary(t *testing.T) {
	v := Extract(nil, &DietaryScreening{
		Items: map[string]DietaryItem{
			"sweet_sugary_foods": {Consumes: "yes", Daily: "2-3 times", Weekly: "4-6_week", Timing: "before bedtime", Bedtime: "yes"},
			"vegetables":         {Consumes: "yes", Daily: "1 time/day"},
			"not_a_category":     {Consumes: "yes"},
		},
		Water: WaterIntake{Drinks: "yes", Timing: "with meals", Glasses: ">6"},
	})

	assert.Equal(t, 1.0, v.Get("sweet_sugary_foods"))
	assert.Equal(t, 3.0, v.Get("sweet_sugary_foods_daily"))
	assert.Equal(t, 3.0, v.Get("sweet_sugary_foods_weekly"))
	assert.Equal(t, 3.0, v.Get("sweet_sugary_foods_timing"))
	assert.Equal(t, 1.0, v.Get("sweet_sugary_foods_bedtime"))
	assert.Equal(t, 1.0, v.Get("vegetables_daily"))
	assert.Equal(t, 1.0, v.Get("water"))
	assert.Equal(t, 1.0, v.Get("water_timing"))
	assert.Equal(t, 4.0, v.Get("water_glasses"))
	assert.Equal(t, 0.0, v.Get(HasDentalData))
}

func TestScoreDMFTCodes(t *testing.T) {
	got := ScoreDMFT(map[string]string{
		"11": "1", "12": "B",
		"21": "2", "22": "C",
		"31": "3", "32": "4", "41": "D", "42": "E",
		"51": "0", "52": "A", "53": "cavity", "54": "??",
	})
	assert.Equal(t, DMFT{Decayed: 3, Filled: 2, Missing: 4}, got)
	assert.Equal(t, 9, got.Total())
	assert.Zero(t, ScoreDMFT(nil).Total())
}

func TestEncodeFrequency(t *testing.T) {
	cases := map[string]float64{
		"":               0,
		"never":          0,
		" NEVER ":        0,
		"1-3_day":        2,
		"4-6_day":        4,
		"1-3_week":       1,
		"4-6_week":       3,
		"with_meals":     1,
		"between meals":  2,
		"before_bedtime": 3,
		"<2":             1,
		"2-4":            2,
		">6":             4,
		"3":              3,
		"1 time/day":     1,
		"2-3 times/day":  3,
		"unknown":        1,
	}
	for in, want := range cases {
		assert.Equalf(t, want, EncodeFrequency(in), "input %q", in)
	}
}

func TestVectorValidate(t *testing.T) {
	v := NewVector()
	require.NoError(t, v.Validate())

	short := Vector{Version: SchemaVersion, Values: make([]float64, Len()-1)}
	assert.ErrorIs(t, short.Validate(), ErrVectorMismatch)

	old := Vector{Version: "1", Values: make([]float64, Len())}
	assert.ErrorIs(t, old.Validate(), ErrVectorMismatch)
}

func TestFromMapRoundTrip(t *testing.T) {
	v := Extract(&DentalScreening{Plaque: "yes"}, nil)
	back, err := FromMap(v.ToMap())
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestFromMapRefusesUnknownAndMissing(t *testing.T) {
	values := NewVector().ToMap()
	values["shoe_size"] = 9
	_, err := FromMap(values)
	assert.ErrorIs(t, err, ErrUnknownFeature)

	values = NewVector().ToMap()
	delete(values, TotalDMFT)
	_, err = FromMap(values)
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestSchemaNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Names() {
		assert.Falsef(t, seen[name], "duplicate feature %s", name)
		seen[name] = true
	}
	assert.Equal(t, "income_1_2500", IncomeFeature("1-2500"))
}
