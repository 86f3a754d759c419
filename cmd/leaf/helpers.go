package main

import (
	"fmt"
	"io"

	"github.com/crimson-sun/leaf/internal/engine"
	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/metrics"
	"github.com/crimson-sun/leaf/internal/output"
	"github.com/crimson-sun/leaf/internal/output/async"
	"github.com/crimson-sun/leaf/internal/output/file"
	"github.com/crimson-sun/leaf/internal/output/multi"
	"github.com/crimson-sun/leaf/internal/output/stdout"
)

// loadEngine builds an engine and loads the configured artifact. A load
// failure is fatal for every command.
func (a *app) loadEngine(m *metrics.Metrics) (*engine.Engine, artifact.Info, error) {
	eng := engine.New(
		engine.WithLogger(a.logger),
		engine.WithMetrics(m),
		engine.WithArtifactOptions(artifact.Options{LibraryPath: a.cfg.Artifact.ORTLibrary}),
	)
	info, err := eng.Load(a.cfg.Artifact.Path)
	if err != nil {
		return nil, artifact.Info{}, fmt.Errorf("cannot start without a model: %w", err)
	}
	return eng, info, nil
}

// buildOutput assembles the configured record outputs. It returns nil for
// mode "none". fallbackStdout forces stdout when nothing is configured.
func (a *app) buildOutput(fallbackStdout bool) (output.Output, error) {
	oc := a.cfg.Output
	verbosity, err := output.ParseVerbosity(oc.Verbosity)
	if err != nil {
		return nil, err
	}

	mode := oc.Mode
	if mode == "none" && fallbackStdout {
		mode = "stdout"
	}

	var outs []output.Output
	if mode == "stdout" || mode == "both" {
		outs = append(outs, stdout.New(verbosity, oc.Pretty))
	}
	if mode == "file" || mode == "both" {
		f, err := file.New(oc.File, verbosity, file.WithMaxSize(oc.MaxSize))
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}

	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		return outs[0], nil
	default:
		return multi.New(outs...), nil
	}
}

// asyncOutput wraps out so slow destinations never hold up HTTP responses.
func (a *app) asyncOutput(out output.Output) output.Output {
	if out == nil {
		return nil
	}
	return async.New(out, async.WithLogger(a.logger), async.WithDropOnFull())
}

func stdoutWriter(w io.Writer, verbosity output.Verbosity, pretty bool) output.Output {
	return stdout.NewWriter(w, verbosity, pretty)
}
