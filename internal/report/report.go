// Package report maps diagnoses, rankings and the field table to the JSON
// shapes shared by the CLI, the HTTP API and the library facade.
package report

import "github.com/crimson-sun/leaf/internal/model"

// UnsupportedNotice is shown when the artifact exposes no feature weights.
const UnsupportedNotice = "This model type does not support feature importance visualization."

// Field describes one sensor reading in model order.
type Field struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Factor is one entry of the importance ranking. Name is the bare field name;
// clients that want "Name (Unit)" join the two.
type Factor struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Unit   string  `json:"unit,omitempty"`
	Weight float64 `json:"weight"`
}

// Ranking is the importance view of an artifact.
type Ranking struct {
	Supported bool     `json:"supported"`
	Entries   []Factor `json:"entries,omitempty"`
	Notice    string   `json:"notice,omitempty"`
}

// Diagnosis is one prediction with its ranking. Exactly one of Importance
// and ImportanceError is set.
type Diagnosis struct {
	Label           string                   `json:"label"`
	Code            int64                    `json:"code"`
	Color           string                   `json:"color"`
	Confidence      float64                  `json:"confidence"`
	Distribution    []model.LabelProbability `json:"distribution"`
	Importance      *Ranking                 `json:"importance,omitempty"`
	ImportanceError string                   `json:"importance_error,omitempty"`
	ArtifactVersion string                   `json:"artifact_version"`
}

// Fields returns the field table in model order.
func Fields() []Field {
	out := make([]Field, len(model.Fields))
	for i, f := range model.Fields {
		out[i] = Field{Key: f.Key, Name: f.Name, Unit: f.Unit, Min: f.Min, Max: f.Max, Default: f.Default}
	}
	return out
}

// Factors returns the ranking entries, or nil when the ranking is unsupported.
func Factors(rk model.Ranking) []Factor {
	if !rk.Supported {
		return nil
	}
	out := make([]Factor, len(rk.Entries))
	for i, e := range rk.Entries {
		out[i] = Factor{Key: e.Field.Key, Name: e.Field.Name, Unit: e.Field.Unit, Weight: e.Weight}
	}
	return out
}

// NewRanking maps rk, attaching the notice when it is unsupported.
func NewRanking(rk model.Ranking) Ranking {
	if !rk.Supported {
		return Ranking{Notice: UnsupportedNotice}
	}
	return Ranking{Supported: true, Entries: Factors(rk)}
}

// NewPrediction maps a prediction without importance.
func NewPrediction(p model.Prediction, version string) Diagnosis {
	return Diagnosis{
		Label:           p.Label.String(),
		Code:            p.Label.Code(),
		Color:           p.Label.Color(),
		Confidence:      p.Confidence(),
		Distribution:    p.Distribution.Entries(),
		ArtifactVersion: version,
	}
}

// NewDiagnosis maps d, carrying either the ranking or its error.
func NewDiagnosis(d model.Diagnosis) Diagnosis {
	out := NewPrediction(d.Prediction, d.ArtifactVersion)
	if d.RankingErr != nil {
		out.ImportanceError = d.RankingErr.Error()
		return out
	}
	rk := NewRanking(d.Ranking)
	out.Importance = &rk
	return out
}
