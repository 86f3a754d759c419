package leaf

import (
	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/report"
)

// Reading maps field keys (see Fields) to sensor values.
type Reading map[string]float64

// Field describes one sensor reading in model order.
type Field = report.Field

// Factor is one entry of the importance ranking.
type Factor = report.Factor

// Probability is one label's share of a distribution. Result.Distribution
// lists them in code order.
type Probability = model.LabelProbability

// Result is the answer for one reading.
// This is the stable public type; internal representations may change.
type Result struct {
	Label           string        `json:"label"`      // Healthy, Moderate Stress, High Stress
	Code            int64         `json:"code"`       // 0, 1, 2
	Confidence      float64       `json:"confidence"` // probability of Label
	Distribution    []Probability `json:"distribution"`
	ArtifactVersion string        `json:"artifact_version"`

	// Set by Diagnose only. ImportanceSupported is false for artifacts
	// without feature weights; ImportanceError is set when weights exist
	// but are malformed.
	Importance          []Factor `json:"importance,omitempty"`
	ImportanceSupported bool     `json:"importance_supported"`
	ImportanceError     string   `json:"importance_error,omitempty"`
}

// Errors returned by Leaf. Test with errors.Is.
var (
	ErrArtifactUnavailable    = model.ErrArtifactUnavailable
	ErrShapeMismatch          = model.ErrShapeMismatch
	ErrInvalidLabel           = model.ErrInvalidLabel
	ErrInconsistentPrediction = model.ErrInconsistentPrediction
	ErrMalformedWeights       = model.ErrMalformedWeights
	ErrOutOfRange             = model.ErrOutOfRange
)

// Fields returns the sensor fields in the order artifacts were trained on.
func Fields() []Field { return report.Fields() }

func resultFrom(p model.Prediction, version string) Result {
	d := report.NewPrediction(p, version)
	return Result{
		Label:           d.Label,
		Code:            d.Code,
		Confidence:      d.Confidence,
		Distribution:    d.Distribution,
		ArtifactVersion: d.ArtifactVersion,
	}
}
