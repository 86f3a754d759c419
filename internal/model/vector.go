package model

import (
	"fmt"
	"strings"
)

// FeatureVector is an immutable ordered sequence of readings. Its arity is
// not checked on construction; the classifier checks it against the artifact.
type FeatureVector struct {
	values []float64
}

// NewFeatureVector copies values into a new vector.
func NewFeatureVector(values ...float64) FeatureVector {
	v := make([]float64, len(values))
	copy(v, values)
	return FeatureVector{values: v}
}

// DefaultVector returns the documented default reading.
func DefaultVector() FeatureVector {
	v := make([]float64, NumFeatures)
	for i, f := range Fields {
		v[i] = f.Default
	}
	return FeatureVector{values: v}
}

// Len returns the number of readings.
func (v FeatureVector) Len() int { return len(v.values) }

// At returns the i-th reading.
func (v FeatureVector) At(i int) float64 { return v.values[i] }

// Values returns a copy of the readings.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Map returns the readings keyed by field key. Only meaningful for vectors
// of canonical arity; extra positions are dropped.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, f := range Fields {
		if i >= len(v.values) {
			break
		}
		m[f.Key] = v.values[i]
	}
	return m
}

// ValidateRanges checks every reading against its field bounds and reports
// all violations in one error. Input surfaces call this; the classifier does not.
func (v FeatureVector) ValidateRanges() error {
	if len(v.values) != NumFeatures {
		return fmt.Errorf("%w: got %d readings, want %d", ErrShapeMismatch, len(v.values), NumFeatures)
	}
	var bad []string
	for i, f := range Fields {
		if !f.Contains(v.values[i]) {
			bad = append(bad, fmt.Sprintf("%s=%g not in [%g, %g]", f.Key, v.values[i], f.Min, f.Max))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrOutOfRange, strings.Join(bad, "; "))
	}
	return nil
}
