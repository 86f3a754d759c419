// Package artifact loads pre-trained plant health classifiers and exposes
// them behind a uniform, read-only contract.
package artifact

// Artifact is an opaque trained classifier. Implementations are immutable
// after loading and safe for concurrent use.
type Artifact interface {
	// NumFeatures is the input arity the artifact was trained with.
	NumFeatures() int

	// Predict returns one class code per input row.
	Predict(x [][]float64) ([]int64, error)

	// PredictProba returns one distribution per input row, in class-code order.
	PredictProba(x [][]float64) ([][]float64, error)

	// Close releases runtime resources held by the artifact.
	Close() error
}

// Weighted is implemented by artifacts that expose per-feature importance
// weights in canonical feature order.
type Weighted interface {
	FeatureImportances() []float64
}

// Info describes where an artifact came from.
type Info struct {
	Path    string   // manifest path as given
	Kind    string   // registered loader name
	Name    string   // optional display name from the manifest
	Version string   // sha256 prefix of the manifest bytes
	Files   []string // manifest plus every file it references
}
