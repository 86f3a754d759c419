package artifact

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gopkg.in/yaml.v3"
)

func init() {
	Register("forest", loadForest)
}

// forestSpec is the manifest body of a decision-tree ensemble. Trees use flat
// node arrays; an internal node sends x to Left when x[Feature] <= Threshold.
type forestSpec struct {
	Importances []float64 `yaml:"importances"`
	Trees       []struct {
		Nodes []treeNode `yaml:"nodes"`
	} `yaml:"trees"`
}

type treeNode struct {
	Feature   int       `yaml:"feature"`
	Threshold float64   `yaml:"threshold"`
	Left      int       `yaml:"left"`
	Right     int       `yaml:"right"`
	Value     []float64 `yaml:"value"` // class weights; non-empty marks a leaf
}

// Forest averages the leaf distributions of its trees, the way a random
// forest's predict_proba does.
type Forest struct {
	trees       [][]treeNode
	classes     []int64
	nFeatures   int
	importances []float64
}

func loadForest(h Header, raw []byte, _ string, _ Options) (Artifact, []string, error) {
	var spec forestSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, nil, fmt.Errorf("parse trees: %w", err)
	}
	f, err := newForest(h, spec)
	if err != nil {
		return nil, nil, err
	}
	return f, nil, nil
}

func newForest(h Header, spec forestSpec) (*Forest, error) {
	if len(spec.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	f := &Forest{
		classes:   h.Classes,
		nFeatures: h.numFeatures(),
	}
	for ti, t := range spec.Trees {
		nodes, err := normalizeTree(t.Nodes, len(h.Classes), f.nFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
		f.trees = append(f.trees, nodes)
	}

	// Weights are passed through untouched; the ranker owns their validation.
	if spec.Importances != nil {
		f.importances = append([]float64(nil), spec.Importances...)
	} else {
		f.importances = f.splitFrequencies()
	}
	return f, nil
}

// normalizeTree validates node links and scales leaf values to sum to 1.
// Children must come after their parent, which rules out cycles.
func normalizeTree(in []treeNode, nClasses, nFeatures int) ([]treeNode, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("empty tree")
	}
	nodes := make([]treeNode, len(in))
	for i, n := range in {
		if len(n.Value) > 0 {
			if len(n.Value) != nClasses {
				return nil, fmt.Errorf("node %d: leaf has %d values, want %d", i, len(n.Value), nClasses)
			}
			var sum float64
			for _, v := range n.Value {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("node %d: invalid leaf value %g", i, v)
				}
				sum += v
			}
			if sum == 0 {
				return nil, fmt.Errorf("node %d: leaf values sum to zero", i)
			}
			value := make([]float64, nClasses)
			for j, v := range n.Value {
				value[j] = v / sum
			}
			nodes[i] = treeNode{Value: value}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return nil, fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(in) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, child)
			}
		}
		nodes[i] = n
	}
	return nodes, nil
}

// splitFrequencies derives importances from how often each feature is used
// as a split, normalized to sum to 1. All zeros for a forest of stumps.
func (f *Forest) splitFrequencies() []float64 {
	counts := make([]float64, f.nFeatures)
	for _, t := range f.trees {
		for _, n := range t {
			if len(n.Value) == 0 {
				counts[n.Feature]++
			}
		}
	}
	total, _ := stats.Sum(counts)
	if total == 0 {
		return counts
	}
	for i := range counts {
		counts[i] /= total
	}
	return counts
}

func (f *Forest) NumFeatures() int { return f.nFeatures }

// PredictProba returns the mean leaf distribution across trees for each row.
func (f *Forest) PredictProba(x [][]float64) ([][]float64, error) {
	if err := checkRows(x, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = f.proba(row)
	}
	return out, nil
}

// Predict returns classes[argmax] of the averaged distribution per row.
func (f *Forest) Predict(x [][]float64) ([]int64, error) {
	if err := checkRows(x, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([]int64, len(x))
	for i, row := range x {
		out[i] = f.classes[argmax(f.proba(row))]
	}
	return out, nil
}

// FeatureImportances returns a copy of the forest's weights.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.importances...)
}

func (f *Forest) Close() error { return nil }

func (f *Forest) proba(row []float64) []float64 {
	acc := make([]float64, len(f.classes))
	for _, t := range f.trees {
		leaf := walk(t, row)
		for j, v := range leaf {
			acc[j] += v
		}
	}
	n := float64(len(f.trees))
	for j := range acc {
		acc[j] /= n
	}
	return acc
}

func walk(nodes []treeNode, row []float64) []float64 {
	i := 0
	for len(nodes[i].Value) == 0 {
		n := nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return nodes[i].Value
}
