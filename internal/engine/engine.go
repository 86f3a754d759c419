// Package engine owns the loaded artifact and runs the classify and rank
// operations against a consistent snapshot of it.
package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/engine/classifier"
	"github.com/crimson-sun/leaf/internal/engine/ranker"
	"github.com/crimson-sun/leaf/internal/metrics"
	"github.com/crimson-sun/leaf/internal/model"
)

// Engine holds the current artifact snapshot behind an atomic pointer.
// Reloads swap the pointer; calls already in flight finish on the snapshot
// they started with. Safe for concurrent use.
type Engine struct {
	current atomic.Pointer[Snapshot]

	artifactOpts artifact.Options
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the Prometheus instruments. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithArtifactOptions sets loader options such as the ONNX Runtime path.
func WithArtifactOptions(o artifact.Options) Option {
	return func(e *Engine) { e.artifactOpts = o }
}

// New creates an Engine with no artifact loaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load opens the artifact manifest at path and makes it current. On failure
// the previous snapshot, if any, stays in place.
func (e *Engine) Load(path string) (artifact.Info, error) {
	a, info, err := artifact.Open(path, e.artifactOpts)
	if err != nil {
		e.metrics.ObserveLoad("", "", 0, err)
		return artifact.Info{}, err
	}
	e.Swap(a, info)
	return info, nil
}

// Swap installs an already-opened artifact as the current snapshot and
// retires the previous one.
func (e *Engine) Swap(a artifact.Artifact, info artifact.Info) {
	now := e.now()
	next := newSnapshot(a, info, now)
	next.onClose = e.closeLogger(info)

	prev := e.current.Swap(next)
	e.metrics.ObserveLoad(info.Kind, info.Version, float64(now.Unix()), nil)
	e.logger.Info("artifact loaded", "path", info.Path, "kind", info.Kind, "version", info.Version)

	if prev != nil {
		prev.retire()
	}
}

// Current returns the info of the loaded artifact.
func (e *Engine) Current() (artifact.Info, bool) {
	s := e.current.Load()
	if s == nil {
		return artifact.Info{}, false
	}
	return s.Info, true
}

// Ready reports whether an artifact is loaded.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Classify predicts the label and distribution for one vector.
func (e *Engine) Classify(v model.FeatureVector) (model.Prediction, error) {
	s, err := e.acquire()
	if err != nil {
		e.metrics.ObserveError("classify", err)
		return model.Prediction{}, err
	}
	defer s.release()
	return e.classify(s, v)
}

// ClassifyBatch predicts every vector in one artifact call and reports the
// version of the artifact that produced them.
func (e *Engine) ClassifyBatch(vs []model.FeatureVector) ([]model.Prediction, string, error) {
	s, err := e.acquire()
	if err != nil {
		e.metrics.ObserveError("classify_batch", err)
		return nil, "", err
	}
	defer s.release()

	start := e.now()
	preds, err := classifier.ClassifyBatch(s.Artifact, vs)
	if err != nil {
		e.metrics.ObserveError("classify_batch", err)
		return nil, "", err
	}
	e.metrics.ObserveInference(e.now().Sub(start).Seconds())
	for _, p := range preds {
		e.metrics.ObservePrediction(p.Label)
	}
	return preds, s.Info.Version, nil
}

// Rank returns the importance ranking of the current artifact.
func (e *Engine) Rank() (model.Ranking, error) {
	s, err := e.acquire()
	if err != nil {
		e.metrics.ObserveError("rank", err)
		return model.Ranking{}, err
	}
	defer s.release()

	r, err := ranker.Rank(s.Artifact)
	if err != nil {
		e.metrics.ObserveError("rank", err)
	}
	return r, err
}

// Diagnose classifies v and ranks importances on the same snapshot.
// A ranking failure is reported in Diagnosis.RankingErr and does not fail
// the call; a classification failure does.
func (e *Engine) Diagnose(v model.FeatureVector) (model.Diagnosis, error) {
	s, err := e.acquire()
	if err != nil {
		e.metrics.ObserveError("diagnose", err)
		return model.Diagnosis{}, err
	}
	defer s.release()

	p, err := e.classify(s, v)
	if err != nil {
		return model.Diagnosis{}, err
	}

	d := model.Diagnosis{Prediction: p, ArtifactVersion: s.Info.Version}
	d.Ranking, d.RankingErr = ranker.Rank(s.Artifact)
	if d.RankingErr != nil {
		e.metrics.ObserveError("rank", d.RankingErr)
		e.logger.Warn("feature importance unavailable", "version", s.Info.Version, "error", d.RankingErr)
	}
	return d, nil
}

// Close retires the current snapshot. Later calls fail with
// ErrArtifactUnavailable; in-flight calls complete normally.
func (e *Engine) Close() error {
	prev := e.current.Swap(nil)
	if prev == nil {
		return nil
	}
	prev.retire()
	return nil
}

func (e *Engine) classify(s *Snapshot, v model.FeatureVector) (model.Prediction, error) {
	start := e.now()
	p, err := classifier.Classify(s.Artifact, v)
	if err != nil {
		e.metrics.ObserveError("classify", err)
		return model.Prediction{}, err
	}
	e.metrics.ObserveInference(e.now().Sub(start).Seconds())
	e.metrics.ObservePrediction(p.Label)
	return p, nil
}

// acquire pins the current snapshot. The re-check after incrementing guards
// against a concurrent swap retiring the snapshot between load and pin.
func (e *Engine) acquire() (*Snapshot, error) {
	for {
		s := e.current.Load()
		if s == nil {
			return nil, fmt.Errorf("engine: %w: no artifact loaded", model.ErrArtifactUnavailable)
		}
		s.refs.Add(1)
		if e.current.Load() == s {
			return s, nil
		}
		s.release()
	}
}

func (e *Engine) closeLogger(info artifact.Info) func(error) {
	return func(err error) {
		if err != nil {
			e.logger.Warn("artifact close failed", "version", info.Version, "error", err)
			return
		}
		e.logger.Debug("artifact released", "version", info.Version)
	}
}
