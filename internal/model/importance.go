package model

// FeatureImportance pairs a field with the artifact's weight for it.
type FeatureImportance struct {
	Field  Field
	Weight float64
}

// Ranking is the importance view of an artifact. When Supported is false the
// artifact does not expose weights and Entries is nil.
type Ranking struct {
	Supported bool
	Entries   []FeatureImportance
}

// Diagnosis combines a prediction with the importance ranking computed from
// the same artifact snapshot. RankingErr is set when importance is
// unavailable because of malformed weights; the prediction is still valid.
type Diagnosis struct {
	Prediction      Prediction
	Ranking         Ranking
	RankingErr      error
	ArtifactVersion string
}
