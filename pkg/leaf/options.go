package leaf

import "log/slog"

type options struct {
	artifactPath string
	libraryPath  string
	strict       bool
	logger       *slog.Logger
}

// Option configures a Leaf instance.
type Option func(*options)

// WithArtifact sets the artifact manifest path. Default: models/plant_health.yaml.
func WithArtifact(path string) Option {
	return func(o *options) {
		o.artifactPath = path
	}
}

// WithLibraryPath sets the ONNX Runtime shared library used by onnx
// artifacts. Default: libonnxruntime.so next to the model file.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithStrictRanges controls whether readings outside the documented field
// bounds are rejected with ErrOutOfRange. Default: true.
func WithStrictRanges(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithLogger sets the logger for artifact loads. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		artifactPath: "models/plant_health.yaml",
		strict:       true,
		logger:       slog.Default(),
	}
}
