package model

import "math"

// Distribution holds one probability per Label, in code order.
type Distribution [NumLabels]float64

// Of returns the probability assigned to l.
func (d Distribution) Of(l Label) float64 { return d[l.Code()] }

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	var s float64
	for _, p := range d {
		s += p
	}
	return s
}

// Argmax returns the most probable label. Ties go to the lowest code.
func (d Distribution) Argmax() Label {
	best := 0
	for i := 1; i < NumLabels; i++ {
		if d[i] > d[best] {
			best = i
		}
	}
	return Label(best)
}

// Max returns the largest probability.
func (d Distribution) Max() float64 {
	m := math.Inf(-1)
	for _, p := range d {
		m = math.Max(m, p)
	}
	return m
}

// Prediction is the classifier's answer for one vector.
type Prediction struct {
	Label        Label
	Distribution Distribution
}

// Confidence returns the probability of the predicted label.
func (p Prediction) Confidence() float64 {
	return p.Distribution.Of(p.Label)
}

// LabelProbability is one entry of a serialized distribution.
type LabelProbability struct {
	Label       string  `json:"label"`
	Code        int64   `json:"code"`
	Probability float64 `json:"probability"`
}

// Entries returns the distribution in code order. Serialize this rather than
// a map so the order survives encoding.
func (d Distribution) Entries() []LabelProbability {
	out := make([]LabelProbability, NumLabels)
	for i, l := range Labels() {
		out[i] = LabelProbability{Label: l.String(), Code: l.Code(), Probability: d.Of(l)}
	}
	return out
}
