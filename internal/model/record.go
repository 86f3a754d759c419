package model

import (
	"time"

	"github.com/google/uuid"
)

// Record is one served prediction as written to outputs.
type Record struct {
	ID              string             `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	Source          string             `json:"source"`                     // "http", "cli", "csv:<file>:<row>"
	ArtifactVersion string             `json:"artifact_version,omitempty"` // sha256 prefix of the manifest
	Label           string             `json:"label"`
	Code            int64              `json:"code"`
	Confidence      float64            `json:"confidence,omitempty"`
	Distribution    []LabelProbability `json:"distribution,omitempty"` // code order
	Inputs          map[string]float64 `json:"inputs,omitempty"`
}

// NewRecord builds a fully populated Record for a prediction.
func NewRecord(source, version string, v FeatureVector, p Prediction, ts time.Time) Record {
	return Record{
		ID:              uuid.NewString(),
		Timestamp:       ts,
		Source:          source,
		ArtifactVersion: version,
		Label:           p.Label.String(),
		Code:            p.Label.Code(),
		Confidence:      p.Confidence(),
		Distribution:    p.Distribution.Entries(),
		Inputs:          v.Map(),
	}
}
