package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/leaf/internal/config"
	"github.com/crimson-sun/leaf/internal/logging"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	envFile   string
	artifact  string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "leaf",
		Short: "Plant health classification from sensor readings",
		Long: "leaf classifies a plant's health (Healthy, Moderate Stress, High Stress)\n" +
			"from eleven sensor readings using a pre-trained model artifact, and ranks\n" +
			"which readings the model relies on most.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", "", "load configuration from this .env file (default: ./.env if present)")
	pf.StringVar(&a.artifact, "artifact", "", "artifact manifest path (overrides LEAF_ARTIFACT_PATH)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LEAF_LOG_LEVEL)")
	pf.StringVar(&a.logFormat, "log-format", "", "text or json (overrides LEAF_LOG_FORMAT)")

	root.AddCommand(
		newServeCmd(a),
		newPredictCmd(a),
		newImportanceCmd(a),
		newFieldsCmd(a),
		newVersionCmd(),
	)
	root.Version = config.Version
	return root
}

// setup loads configuration, applies flag overrides and initializes logging.
func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		cfg, err := config.LoadFile(a.envFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}

	if a.artifact != "" {
		a.cfg.Artifact.Path = a.artifact
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}

	if cmd.Annotations["needsArtifact"] == "true" {
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}

	l := logging.New(cmd.ErrOrStderr(), a.cfg.Log.Format, logging.ParseLevel(a.cfg.Log.Level))
	slog.SetDefault(l)
	a.logger = l
	return nil
}

func needsArtifact() map[string]string {
	return map[string]string{"needsArtifact": "true"}
}

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("--format must be text or json, got %q", format)
	}
	return nil
}
