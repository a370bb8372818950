package features

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrVectorMismatch means the vector was built for another schema
	// version or has the wrong length.
	ErrVectorMismatch = errors.New("feature vector does not match schema")
	// ErrUnknownFeature means a feature map did not carry exactly the schema names.
	ErrUnknownFeature = errors.New("unrecognized feature set")
)

// Vector is a fixed-order numeric encoding of one patient's answers.
type Vector struct {
	Version string    `json:"version"`
	Values  []float64 `json:"values"`
}

// NewVector returns a zeroed vector for the current schema.
func NewVector() Vector {
	return Vector{Version: SchemaVersion, Values: make([]float64, len(names))}
}

// Validate refuses vectors from a different schema version or length.
func (v Vector) Validate() error {
	if v.Version != SchemaVersion {
		return fmt.Errorf("%w: version %q, expected %q", ErrVectorMismatch, v.Version, SchemaVersion)
	}
	if len(v.Values) != len(names) {
		return fmt.Errorf("%w: %d values, expected %d", ErrVectorMismatch, len(v.Values), len(names))
	}
	return nil
}

// Get returns the value of a named feature, 0 for unknown names.
func (v Vector) Get(name string) float64 {
	i, ok := index[name]
	if !ok || i >= len(v.Values) {
		return 0
	}
	return v.Values[i]
}

func (v *Vector) set(name string, value float64) {
	v.Values[index[name]] = value
}

// ToMap returns the vector keyed by feature name.
func (v Vector) ToMap() map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(v.Values) {
			out[name] = v.Values[i]
		}
	}
	return out
}

// FromMap builds a vector from a name/value map. The map must carry every
// schema feature and nothing else.
func FromMap(values map[string]float64) (Vector, error) {
	var unknown []string
	for name := range values {
		if _, ok := index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Vector{}, fmt.Errorf("%w: unknown features %v", ErrUnknownFeature, unknown)
	}
	var missing []string
	v := NewVector()
	for i, name := range names {
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		v.Values[i] = value
	}
	if len(missing) > 0 {
		return Vector{}, fmt.Errorf("%w: missing features %v", ErrUnknownFeature, missing)
	}
	return v, nil
}

// Completeness counts the screening record types present (0, 1 or 2).
func Completeness(v Vector) int {
	count := 0
	if v.Get(HasDentalData) >= 1 {
		count++
	}
	if v.Get(HasDietaryData) >= 1 {
		count++
	}
	return count
}
