package features

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeAnswer applies NFKC, trims and lower-cases a form value.
func NormalizeAnswer(value string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(value)))
}

// EncodeYesNo maps yes-like answers to 1, everything else to 0.
func EncodeYesNo(value string) float64 {
	switch NormalizeAnswer(value) {
	case "yes", "y", "true", "1":
		return 1
	default:
		return 0
	}
}

var frequencyCodes = map[string]int{
	"never": 0,
	"none":  0,
	"no":    0,
	"0":     0,

	"1-3_day":  2,
	"4-6_day":  4,
	"1-3_week": 1,
	"4-6_week": 3,
	"daily":    2,

	"with_meals":     1,
	"morning":        1,
	"afternoon":      1,
	"between_meals":  2,
	"throughout_day": 2,
	"evening":        2,
	"before_bedtime": 3,
	"before_bed":     3,
	"night":          3,

	"<2":  1,
	"2-4": 2,
	"4-6": 3,
	">6":  4,
}

var countPattern = regexp.MustCompile(`^(\d+)(?:\s*-\s*(\d+))?(?:\s*(?:x|times?))?(?:\s*(?:/|a|per)?\s*(?:day|week))?$`)

// EncodeFrequency maps a frequency, timing or quantity answer onto an
// ordinal integer scale. Blank answers are 0, known form codes use their
// fixed rank, counts and ranges use the upper bound, any other non-empty
// answer is 1.
func EncodeFrequency(value string) float64 {
	v := NormalizeAnswer(value)
	if v == "" {
		return 0
	}
	key := strings.Join(strings.Fields(v), "_")
	if code, ok := frequencyCodes[key]; ok {
		return float64(code)
	}
	if m := countPattern.FindStringSubmatch(v); m != nil {
		bound := m[1]
		if m[2] != "" {
			bound = m[2]
		}
		if n, err := strconv.Atoi(bound); err == nil {
			return float64(n)
		}
	}
	return 1
}

// ToothStatus is the DMFT class of a charted tooth.
type ToothStatus int

const (
	ToothHealthy ToothStatus = iota
	ToothDecayed
	ToothFilled
	ToothMissing
)

var toothCodes = map[string]ToothStatus{
	"0": ToothHealthy, "a": ToothHealthy, "healthy": ToothHealthy, "sound": ToothHealthy,
	"1": ToothDecayed, "b": ToothDecayed, "decayed": ToothDecayed, "cavity": ToothDecayed, "caries": ToothDecayed,
	"2": ToothFilled, "c": ToothFilled, "filled": ToothFilled, "filling": ToothFilled,
	"3": ToothMissing, "4": ToothMissing, "d": ToothMissing, "e": ToothMissing, "missing": ToothMissing, "extracted": ToothMissing,
}

// ClassifyTooth returns the DMFT class for a condition code. Unknown codes
// are treated as healthy.
func ClassifyTooth(code string) ToothStatus {
	return toothCodes[NormalizeAnswer(code)]
}

// DMFT is the decayed/missing/filled breakdown of a charting.
type DMFT struct {
	Decayed int `json:"d"`
	Missing int `json:"m"`
	Filled  int `json:"f"`
}

// Total is the decay index.
func (d DMFT) Total() int {
	return d.Decayed + d.Missing + d.Filled
}

// ScoreDMFT counts non-healthy teeth in a charting.
func ScoreDMFT(teeth map[string]string) DMFT {
	var out DMFT
	for _, code := range teeth {
		switch ClassifyTooth(code) {
		case ToothDecayed:
			out.Decayed++
		case ToothFilled:
			out.Filled++
		case ToothMissing:
			out.Missing++
		}
	}
	return out
}
