package model

import "errors"

var (
	// ErrArtifactUnavailable means no usable artifact is loaded. Fatal to inference.
	ErrArtifactUnavailable = errors.New("artifact unavailable")

	// ErrShapeMismatch means a vector or artifact output has the wrong arity,
	// or an artifact declares a feature order other than the canonical one.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidLabel means the artifact returned a class code outside {0,1,2}.
	ErrInvalidLabel = errors.New("invalid class label")

	// ErrInconsistentPrediction means the returned distribution is not a
	// probability distribution or disagrees with the returned label.
	ErrInconsistentPrediction = errors.New("inconsistent prediction")

	// ErrMalformedWeights means the artifact exposes feature weights of the
	// wrong count or with negative values. Importance becomes unavailable;
	// classification is unaffected.
	ErrMalformedWeights = errors.New("malformed feature weights")

	// ErrOutOfRange is returned by input surfaces for readings outside the
	// declared field bounds.
	ErrOutOfRange = errors.New("reading out of range")
)
