// Package testdata embeds a small labelled corpus of sensor readings with the
// outcome the reference forest artifact must produce for each.
package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/crimson-sun/leaf/internal/model"
)

//go:embed corpus.json
var corpusJSON []byte

// CorpusEntry is a labelled reading for classification validation.
type CorpusEntry struct {
	Description          string             `json:"description"`
	Reading              map[string]float64 `json:"reading"`
	ExpectedLabel        string             `json:"expected_label"`
	ExpectedDistribution []float64          `json:"expected_distribution"`
}

// Vector builds the feature vector in canonical field order. Every field must
// be present in the reading.
func (e CorpusEntry) Vector() (model.FeatureVector, error) {
	vals := make([]float64, model.NumFeatures)
	for i, f := range model.Fields {
		v, ok := e.Reading[f.Key]
		if !ok {
			return model.FeatureVector{}, fmt.Errorf("%q: missing field %s", e.Description, f.Key)
		}
		vals[i] = v
	}
	return model.NewFeatureVector(vals...), nil
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}
