package validation

import (
	"math"
	"math/rand"
	"sort"
)

// Fold holds sample indices for one train/test partition.
type Fold struct {
	Train []int
	Test  []int
}

func byClass(labels []int, seed int64) [][]int {
	classes := 0
	for _, l := range labels {
		if l+1 > classes {
			classes = l + 1
		}
	}
	groups := make([][]int, classes)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	rng := rand.New(rand.NewSource(seed))
	for _, g := range groups {
		rng.Shuffle(len(g), func(a, b int) { g[a], g[b] = g[b], g[a] })
	}
	return groups
}

// StratifiedSplit partitions indices so each class keeps roughly the same
// proportion in both halves. A class with at least two samples always
// places one in each half; a singleton class stays in train.
func StratifiedSplit(labels []int, testFraction float64, seed int64) Fold {
	var fold Fold
	for _, g := range byClass(labels, seed) {
		nTest := int(math.Round(testFraction * float64(len(g))))
		if len(g) >= 2 {
			if nTest < 1 {
				nTest = 1
			}
			if nTest > len(g)-1 {
				nTest = len(g) - 1
			}
		} else {
			nTest = 0
		}
		fold.Test = append(fold.Test, g[:nTest]...)
		fold.Train = append(fold.Train, g[nTest:]...)
	}
	sort.Ints(fold.Train)
	sort.Ints(fold.Test)
	return fold
}

// StratifiedKFold deals each class round-robin across k folds after a
// seeded shuffle. k is reduced to the sample count when larger.
func StratifiedKFold(labels []int, k int, seed int64) []Fold {
	if k > len(labels) {
		k = len(labels)
	}
	if k < 2 {
		return nil
	}
	assign := make([]int, len(labels))
	next := 0
	for _, g := range byClass(labels, seed) {
		for _, idx := range g {
			assign[idx] = next % k
			next++
		}
	}
	folds := make([]Fold, k)
	for idx, f := range assign {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, idx)
			} else {
				folds[j].Train = append(folds[j].Train, idx)
			}
		}
	}
	return folds
}
