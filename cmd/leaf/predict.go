package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output"
	"github.com/crimson-sun/leaf/internal/output/text"
	"github.com/crimson-sun/leaf/internal/pipeline"
	"github.com/crimson-sun/leaf/internal/report"
	"github.com/crimson-sun/leaf/internal/source"
)

type predictOptions struct {
	values    [model.NumFeatures]float64
	input     string
	format    string
	lang      string
	batchSize int
	strict    bool
}

func newPredictCmd(a *app) *cobra.Command {
	o := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one reading, or every row of a CSV file",
		Long: "Classify one reading built from the field flags (unset fields take their\n" +
			"documented defaults), or with --input classify every row of a CSV file.\n" +
			"CSV headers may use field keys, names or display labels.",
		Args:        cobra.NoArgs,
		Annotations: needsArtifact(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(o.format); err != nil {
				return err
			}
			if !cmd.Flags().Changed("strict") {
				o.strict = a.cfg.Artifact.StrictRanges
			}
			if o.input != "" {
				return a.predictFile(cmd, o)
			}
			return a.predictOne(cmd, o)
		},
	}

	f := cmd.Flags()
	for i, fld := range model.Fields {
		name := strings.ReplaceAll(fld.Key, "_", "-")
		usage := fmt.Sprintf("%s, in [%g, %g]", fld.Label(), fld.Min, fld.Max)
		f.Float64Var(&o.values[i], name, fld.Default, usage)
	}
	f.StringVarP(&o.input, "input", "i", "", `CSV file of readings ("-" for stdin)`)
	f.StringVarP(&o.format, "format", "f", "text", "single-reading output: text or json")
	f.StringVar(&o.lang, "lang", "en", "BCP 47 tag for number formatting in text output")
	f.IntVar(&o.batchSize, "batch-size", 0, "rows per classifier call for --input (default 256)")
	f.BoolVar(&o.strict, "strict", true, "reject readings outside field bounds (default from LEAF_STRICT_RANGES)")
	return cmd
}

func (a *app) predictOne(cmd *cobra.Command, o *predictOptions) error {
	eng, _, err := a.loadEngine(nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	v := model.NewFeatureVector(o.values[:]...)
	if o.strict {
		if err := v.ValidateRanges(); err != nil {
			return err
		}
	}

	d, err := eng.Diagnose(v)
	if err != nil {
		return err
	}

	out, err := a.buildOutput(false)
	if err != nil {
		return err
	}
	if out != nil {
		rec := model.NewRecord("cli", d.ArtifactVersion, v, d.Prediction, time.Now())
		werr := out.Write(cmd.Context(), rec)
		if cerr := out.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			a.logger.Warn("record write failed", "id", rec.ID, "error", werr)
		}
	}

	w := cmd.OutOrStdout()
	if o.format == "json" {
		return writeJSON(w, report.NewDiagnosis(d))
	}
	tag, err := language.Parse(o.lang)
	if err != nil {
		return fmt.Errorf("--lang: %w", err)
	}
	return text.New(tag).Diagnosis(w, d)
}

func (a *app) predictFile(cmd *cobra.Command, o *predictOptions) error {
	var (
		in   io.Reader
		name string
	)
	if o.input == "-" {
		in, name = cmd.InOrStdin(), "stdin"
	} else {
		f, err := os.Open(o.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in, name = f, filepath.Base(o.input)
	}

	src, err := source.NewReader(in, source.WithStrictRanges(o.strict))
	if err != nil {
		return err
	}

	eng, _, err := a.loadEngine(nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := a.buildOutput(false)
	if err != nil {
		return err
	}
	if out == nil {
		verbosity, err := output.ParseVerbosity(a.cfg.Output.Verbosity)
		if err != nil {
			return err
		}
		out = stdoutWriter(cmd.OutOrStdout(), verbosity, a.cfg.Output.Pretty)
	}

	p := pipeline.New(eng, out, pipeline.WithBatchSize(o.batchSize), pipeline.WithLogger(a.logger))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sum, runErr := p.Run(ctx, src, name)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d readings classified", sum.Rows)
	for _, l := range model.Labels() {
		fmt.Fprintf(cmd.ErrOrStderr(), ", %s %d", l, sum.ByLabel[l])
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return runErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
