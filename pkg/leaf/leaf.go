package leaf

import (
	"fmt"

	"github.com/crimson-sun/leaf/internal/engine"
	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/report"
)

// Leaf is a plant health classifier backed by one trained artifact.
// Safe for concurrent use.
type Leaf struct {
	engine *engine.Engine
	path   string
	strict bool
}

// New loads the artifact and returns a ready classifier. A missing or
// malformed artifact is an error.
func New(opts ...Option) (*Leaf, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	eng := engine.New(
		engine.WithLogger(o.logger),
		engine.WithArtifactOptions(artifact.Options{LibraryPath: o.libraryPath}),
	)
	if _, err := eng.Load(o.artifactPath); err != nil {
		return nil, fmt.Errorf("leaf: %w", err)
	}
	return &Leaf{engine: eng, path: o.artifactPath, strict: o.strict}, nil
}

// Classify labels one reading given as values in Fields order.
func (l *Leaf) Classify(values []float64) (Result, error) {
	v, err := l.vector(values)
	if err != nil {
		return Result{}, err
	}
	preds, version, err := l.engine.ClassifyBatch([]model.FeatureVector{v})
	if err != nil {
		return Result{}, err
	}
	return resultFrom(preds[0], version), nil
}

// ClassifyBatch labels many readings with one inference call. Every result
// comes from the same artifact version.
func (l *Leaf) ClassifyBatch(rows [][]float64) ([]Result, error) {
	vs := make([]model.FeatureVector, len(rows))
	for i, row := range rows {
		v, err := l.vector(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		vs[i] = v
	}
	preds, version, err := l.engine.ClassifyBatch(vs)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(preds))
	for i, p := range preds {
		out[i] = resultFrom(p, version)
	}
	return out, nil
}

// Diagnose labels a keyed reading and attaches the importance ranking.
// Missing keys take their defaults; unknown keys are ErrShapeMismatch.
func (l *Leaf) Diagnose(r Reading) (Result, error) {
	vals := model.DefaultVector().Values()
	for k, x := range r {
		i, ok := model.FieldIndex(k)
		if !ok {
			return Result{}, fmt.Errorf("%w: unknown field %q", model.ErrShapeMismatch, k)
		}
		vals[i] = x
	}
	v, err := l.vector(vals)
	if err != nil {
		return Result{}, err
	}

	d, err := l.engine.Diagnose(v)
	if err != nil {
		return Result{}, err
	}
	res := resultFrom(d.Prediction, d.ArtifactVersion)
	if d.RankingErr != nil {
		res.ImportanceError = d.RankingErr.Error()
		return res, nil
	}
	res.ImportanceSupported = d.Ranking.Supported
	res.Importance = report.Factors(d.Ranking)
	return res, nil
}

// Importance returns the fields ranked by weight, heaviest first. supported
// is false when the artifact exposes no weights.
func (l *Leaf) Importance() (factors []Factor, supported bool, err error) {
	rk, err := l.engine.Rank()
	if err != nil {
		return nil, false, err
	}
	return report.Factors(rk), rk.Supported, nil
}

// Version returns the loaded artifact's version.
func (l *Leaf) Version() string {
	info, _ := l.engine.Current()
	return info.Version
}

// Reload re-reads the artifact manifest. On failure the current artifact
// keeps serving.
func (l *Leaf) Reload() error {
	if _, err := l.engine.Load(l.path); err != nil {
		return fmt.Errorf("leaf: %w", err)
	}
	return nil
}

// Close releases the artifact once in-flight calls finish.
func (l *Leaf) Close() error {
	return l.engine.Close()
}

func (l *Leaf) vector(values []float64) (model.FeatureVector, error) {
	if len(values) != model.NumFeatures {
		return model.FeatureVector{}, fmt.Errorf("%w: got %d readings, want %d",
			model.ErrShapeMismatch, len(values), model.NumFeatures)
	}
	v := model.NewFeatureVector(values...)
	if l.strict {
		if err := v.ValidateRanges(); err != nil {
			return model.FeatureVector{}, err
		}
	}
	return v, nil
}
