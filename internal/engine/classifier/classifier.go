// Package classifier turns an artifact's raw outputs into a validated
// (label, distribution) prediction.
package classifier

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/model"
)

// sumTolerance is how far an artifact's raw distribution may drift from 1
// before it is rejected rather than renormalized.
const sumTolerance = 1e-3

// Classify runs the artifact on a single vector.
func Classify(a artifact.Artifact, v model.FeatureVector) (model.Prediction, error) {
	preds, err := ClassifyBatch(a, []model.FeatureVector{v})
	if err != nil {
		return model.Prediction{}, err
	}
	return preds[0], nil
}

// ClassifyBatch runs the artifact once over all vectors. Any failing row
// fails the whole batch.
func ClassifyBatch(a artifact.Artifact, vs []model.FeatureVector) ([]model.Prediction, error) {
	if a == nil {
		return nil, fmt.Errorf("classifier: %w", model.ErrArtifactUnavailable)
	}
	if len(vs) == 0 {
		return nil, nil
	}

	want := a.NumFeatures()
	rows := make([][]float64, len(vs))
	for i, v := range vs {
		if v.Len() != want || v.Len() != model.NumFeatures {
			return nil, fmt.Errorf("classifier: %w: vector %d has %d features, artifact expects %d",
				model.ErrShapeMismatch, i, v.Len(), want)
		}
		rows[i] = v.Values()
	}

	// Label and distribution come from separate artifact paths; the checks
	// below catch any divergence between them.
	codes, err := a.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("classifier: predict: %w", err)
	}
	probs, err := a.PredictProba(rows)
	if err != nil {
		return nil, fmt.Errorf("classifier: predict proba: %w", err)
	}
	if len(codes) != len(rows) || len(probs) != len(rows) {
		return nil, fmt.Errorf("classifier: %w: %d rows in, %d labels and %d distributions out",
			model.ErrShapeMismatch, len(rows), len(codes), len(probs))
	}

	preds := make([]model.Prediction, len(rows))
	for i := range rows {
		p, err := validate(codes[i], probs[i])
		if err != nil {
			return nil, fmt.Errorf("classifier: row %d: %w", i, err)
		}
		preds[i] = p
	}
	return preds, nil
}

// validate maps the code, normalizes the distribution, and enforces
// argmax(distribution) == label.
func validate(code int64, raw []float64) (model.Prediction, error) {
	label, err := model.LabelFromCode(code)
	if err != nil {
		return model.Prediction{}, err
	}
	if len(raw) != model.NumLabels {
		return model.Prediction{}, fmt.Errorf("%w: distribution has %d entries, want %d",
			model.ErrShapeMismatch, len(raw), model.NumLabels)
	}
	for j, p := range raw {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return model.Prediction{}, fmt.Errorf("%w: probability[%d] = %g", model.ErrInconsistentPrediction, j, p)
		}
	}

	sum, _ := stats.Sum(raw)
	if math.Abs(sum-1) > sumTolerance {
		return model.Prediction{}, fmt.Errorf("%w: probabilities sum to %g", model.ErrInconsistentPrediction, sum)
	}

	var dist model.Distribution
	for j, p := range raw {
		dist[j] = p / sum
	}

	top, _ := stats.Max(dist[:])
	// Renormalizing divides every column by the same sum, so exact ties in
	// the raw output stay exact here.
	if dist.Of(label) < top {
		return model.Prediction{}, fmt.Errorf("%w: label %q has probability %g, maximum is %g",
			model.ErrInconsistentPrediction, label, dist.Of(label), top)
	}
	return model.Prediction{Label: label, Distribution: dist}, nil
}
