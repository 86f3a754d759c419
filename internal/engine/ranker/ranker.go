// Package ranker orders an artifact's per-feature weights for display.
package ranker

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/model"
)

// Rank returns the artifact's feature importances sorted by descending
// weight, ties kept in canonical field order. Artifacts without weights
// yield an unsupported Ranking and a nil error.
func Rank(a artifact.Artifact) (model.Ranking, error) {
	if a == nil {
		return model.Ranking{}, fmt.Errorf("ranker: %w", model.ErrArtifactUnavailable)
	}
	w, ok := a.(artifact.Weighted)
	if !ok {
		return model.Ranking{Supported: false}, nil
	}

	weights := w.FeatureImportances()
	if len(weights) != model.NumFeatures {
		return model.Ranking{}, fmt.Errorf("ranker: %w: got %d weights, want %d",
			model.ErrMalformedWeights, len(weights), model.NumFeatures)
	}

	entries := make([]model.FeatureImportance, model.NumFeatures)
	for i, f := range model.Fields {
		if weights[i] < 0 || math.IsNaN(weights[i]) || math.IsInf(weights[i], 0) {
			return model.Ranking{}, fmt.Errorf("ranker: %w: %s has weight %g",
				model.ErrMalformedWeights, f.Key, weights[i])
		}
		entries[i] = model.FeatureImportance{Field: f, Weight: weights[i]}
	}

	slices.SortStableFunc(entries, func(a, b model.FeatureImportance) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	return model.Ranking{Supported: true, Entries: entries}, nil
}
