// Package metrics defines the Prometheus instruments recorded by the engine.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crimson-sun/leaf/internal/model"
)

// Metrics groups the engine's collectors. A nil *Metrics records nothing.
type Metrics struct {
	Predictions     *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	Reloads         *prometheus.CounterVec
	InferenceTime   prometheus.Histogram
	ArtifactLoaded  prometheus.Gauge
	ArtifactVersion *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaf",
			Name:      "predictions_total",
			Help:      "Predictions served, by label.",
		}, []string{"label"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaf",
			Name:      "errors_total",
			Help:      "Failed engine operations, by operation and error kind.",
		}, []string{"op", "kind"}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaf",
			Name:      "artifact_loads_total",
			Help:      "Artifact load attempts, by result.",
		}, []string{"result"}),
		InferenceTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaf",
			Name:      "inference_seconds",
			Help:      "Time spent in artifact inference per classify call.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		ArtifactLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaf",
			Name:      "artifact_loaded_timestamp_seconds",
			Help:      "Unix time the current artifact was loaded.",
		}),
		ArtifactVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "leaf",
			Name:      "artifact_info",
			Help:      "Always 1; labels describe the current artifact.",
		}, []string{"kind", "version"}),
	}
	reg.MustRegister(m.Predictions, m.Errors, m.Reloads, m.InferenceTime, m.ArtifactLoaded, m.ArtifactVersion)
	return m
}

// Kind maps an error to a low-cardinality label value.
func Kind(err error) string {
	switch {
	case errors.Is(err, model.ErrArtifactUnavailable):
		return "artifact_unavailable"
	case errors.Is(err, model.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, model.ErrInvalidLabel):
		return "invalid_label"
	case errors.Is(err, model.ErrInconsistentPrediction):
		return "inconsistent_prediction"
	case errors.Is(err, model.ErrMalformedWeights):
		return "malformed_weights"
	case errors.Is(err, model.ErrOutOfRange):
		return "out_of_range"
	default:
		return "other"
	}
}

// ObserveError counts a failed operation.
func (m *Metrics) ObserveError(op string, err error) {
	if m == nil || err == nil {
		return
	}
	m.Errors.WithLabelValues(op, Kind(err)).Inc()
}

// ObservePrediction counts a served prediction.
func (m *Metrics) ObservePrediction(l model.Label) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(l.String()).Inc()
}

// ObserveInference records inference latency in seconds.
func (m *Metrics) ObserveInference(seconds float64) {
	if m == nil {
		return
	}
	m.InferenceTime.Observe(seconds)
}

// ObserveLoad records an artifact load attempt. On success the info gauge is
// reset so only the current artifact is reported.
func (m *Metrics) ObserveLoad(kind, version string, unix float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Reloads.WithLabelValues("error").Inc()
		return
	}
	m.Reloads.WithLabelValues("ok").Inc()
	m.ArtifactLoaded.Set(unix)
	m.ArtifactVersion.Reset()
	m.ArtifactVersion.WithLabelValues(kind, version).Set(1)
}
