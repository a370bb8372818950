package validation

import "math"

type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes predictions on a labelled set. Confusion rows are the
// true class and columns the predicted class, both in label order.
type Report struct {
	Accuracy  float64        `json:"accuracy"`
	Classes   []ClassMetrics `json:"classes"`
	Confusion [][]int        `json:"confusion_matrix"`
}

func ConfusionMatrix(truth, predicted []int, classes int) [][]int {
	m := make([][]int, classes)
	for i := range m {
		m[i] = make([]int, classes)
	}
	for i, t := range truth {
		m[t][predicted[i]]++
	}
	return m
}

// Evaluate builds a report. Precision or recall with an empty denominator
// is reported as 0.
func Evaluate(truth, predicted []int, labels []string) Report {
	classes := len(labels)
	m := ConfusionMatrix(truth, predicted, classes)
	report := Report{Confusion: m, Classes: make([]ClassMetrics, classes)}
	var correct int
	for k := 0; k < classes; k++ {
		correct += m[k][k]
		var predictedK, actualK int
		for j := 0; j < classes; j++ {
			predictedK += m[j][k]
			actualK += m[k][j]
		}
		cm := ClassMetrics{Label: labels[k], Support: actualK}
		if predictedK > 0 {
			cm.Precision = float64(m[k][k]) / float64(predictedK)
		}
		if actualK > 0 {
			cm.Recall = float64(m[k][k]) / float64(actualK)
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		report.Classes[k] = cm
	}
	if len(truth) > 0 {
		report.Accuracy = float64(correct) / float64(len(truth))
	}
	return report
}

type Summary struct {
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
	Std    float64   `json:"std"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
}

// Summarize computes mean, population standard deviation and range.
func Summarize(scores []float64) Summary {
	s := Summary{Scores: scores}
	if len(scores) == 0 {
		return s
	}
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		s.Mean += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean /= float64(len(scores))
	for _, v := range scores {
		s.Std += (v - s.Mean) * (v - s.Mean)
	}
	s.Std = math.Sqrt(s.Std / float64(len(scores)))
	return s
}
