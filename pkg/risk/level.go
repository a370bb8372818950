package risk

import (
	"fmt"
	"strings"
)

// Level is the three-class caries risk verdict.
type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Levels lists the classes in index order. Class indices used by the
// classifier, probability triples and confusion matrices follow this order.
var Levels = []Level{Low, Medium, High}

// ParseLevel accepts any casing of low, medium or high.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case Low:
		return Low, nil
	case Medium:
		return Medium, nil
	case High:
		return High, nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

// Index is the class index of the level, -1 when invalid.
func (l Level) Index() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return -1
}

// LevelAt returns the level for a class index.
func LevelAt(i int) Level {
	if i < 0 || i >= len(Levels) {
		return ""
	}
	return Levels[i]
}
