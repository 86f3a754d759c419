// Package pipeline classifies batches of readings and writes the resulting
// prediction records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output"
	"github.com/crimson-sun/leaf/internal/source"
)

const defaultBatchSize = 256

// Classifier is the part of the engine the pipeline needs.
type Classifier interface {
	ClassifyBatch(vs []model.FeatureVector) ([]model.Prediction, string, error)
}

// Source yields readings until io.EOF.
type Source interface {
	Read() (source.Reading, error)
}

// Summary counts what a run produced.
type Summary struct {
	Rows    int
	ByLabel map[model.Label]int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many readings go into one artifact call. Default: 256.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline connects a source, the engine and an output.
type Pipeline struct {
	classifier Classifier
	output     output.Output
	batchSize  int
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Pipeline from the given components.
func New(c Classifier, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: c,
		output:     out,
		batchSize:  defaultBatchSize,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.batchSize <= 0 {
		p.batchSize = defaultBatchSize
	}
	return p
}

// Run reads src to the end, classifying in batches. name identifies the
// source in record provenance ("csv:<name>:<line>"). Any read, classify or
// write error stops the run; records already written stay written.
func (p *Pipeline) Run(ctx context.Context, src Source, name string) (Summary, error) {
	sum := Summary{ByLabel: make(map[model.Label]int, model.NumLabels)}
	b := newBatch(p.batchSize)

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rd, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("pipeline read: %w", err)
		}

		if b.add(rd) {
			if err := p.flush(ctx, b, name, &sum); err != nil {
				return sum, err
			}
		}
	}

	if err := p.flush(ctx, b, name, &sum); err != nil {
		return sum, err
	}
	if err := output.Flush(p.output); err != nil {
		return sum, fmt.Errorf("pipeline output: %w", err)
	}
	p.logger.Info("batch run complete", "source", name, "rows", sum.Rows)
	return sum, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

func (p *Pipeline) flush(ctx context.Context, b *batch, name string, sum *Summary) error {
	readings := b.take()
	if len(readings) == 0 {
		return nil
	}

	vs := make([]model.FeatureVector, len(readings))
	for i, rd := range readings {
		vs[i] = rd.Vector
	}

	preds, version, err := p.classifier.ClassifyBatch(vs)
	if err != nil {
		return fmt.Errorf("pipeline classify (lines %d-%d): %w",
			readings[0].Line, readings[len(readings)-1].Line, err)
	}

	ts := p.now()
	for i, pred := range preds {
		src := fmt.Sprintf("csv:%s:%d", name, readings[i].Line)
		rec := model.NewRecord(src, version, readings[i].Vector, pred, ts)
		if err := p.output.Write(ctx, rec); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
		sum.Rows++
		sum.ByLabel[pred.Label]++
	}
	p.logger.Debug("batch classified", "source", name, "size", len(preds), "version", version)
	return nil
}
