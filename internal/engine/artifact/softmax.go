package artifact

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

func init() {
	Register("softmax", loadSoftmax)
}

type softmaxSpec struct {
	Coef      [][]float64 `yaml:"coef"`      // one row per class
	Intercept []float64   `yaml:"intercept"` // one entry per class
}

// Softmax is a multinomial linear classifier. It exposes no feature weights.
type Softmax struct {
	coef      [][]float64
	intercept []float64
	classes   []int64
	nFeatures int
}

func loadSoftmax(h Header, raw []byte, _ string, _ Options) (Artifact, []string, error) {
	var spec softmaxSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, nil, fmt.Errorf("parse coefficients: %w", err)
	}
	n := h.numFeatures()
	if len(spec.Coef) != len(h.Classes) {
		return nil, nil, fmt.Errorf("coef has %d rows, want %d", len(spec.Coef), len(h.Classes))
	}
	for i, row := range spec.Coef {
		if len(row) != n {
			return nil, nil, fmt.Errorf("coef row %d has %d values, want %d", i, len(row), n)
		}
	}
	if spec.Intercept == nil {
		spec.Intercept = make([]float64, len(h.Classes))
	}
	if len(spec.Intercept) != len(h.Classes) {
		return nil, nil, fmt.Errorf("intercept has %d values, want %d", len(spec.Intercept), len(h.Classes))
	}
	return &Softmax{
		coef:      spec.Coef,
		intercept: spec.Intercept,
		classes:   h.Classes,
		nFeatures: n,
	}, nil, nil
}

func (s *Softmax) NumFeatures() int { return s.nFeatures }

// Predict returns classes[argmax] of the raw logits.
func (s *Softmax) Predict(x [][]float64) ([]int64, error) {
	if err := checkRows(x, s.nFeatures); err != nil {
		return nil, err
	}
	out := make([]int64, len(x))
	for i, row := range x {
		out[i] = s.classes[argmax(s.logits(row))]
	}
	return out, nil
}

// PredictProba returns softmax(logits) per row.
func (s *Softmax) PredictProba(x [][]float64) ([][]float64, error) {
	if err := checkRows(x, s.nFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		z := s.logits(row)
		m := z[argmax(z)]
		var sum float64
		for j := range z {
			z[j] = math.Exp(z[j] - m)
			sum += z[j]
		}
		for j := range z {
			z[j] /= sum
		}
		out[i] = z
	}
	return out, nil
}

func (s *Softmax) Close() error { return nil }

func (s *Softmax) logits(row []float64) []float64 {
	z := make([]float64, len(s.coef))
	for c, w := range s.coef {
		acc := s.intercept[c]
		for j, v := range row {
			acc += w[j] * v
		}
		z[c] = acc
	}
	return z
}
