package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/crimson-sun/leaf/internal/output/text"
	"github.com/crimson-sun/leaf/internal/report"
)

func newImportanceCmd(a *app) *cobra.Command {
	var format, lang string
	cmd := &cobra.Command{
		Use:         "importance",
		Short:       "Rank the sensor fields by the model's importance weights",
		Args:        cobra.NoArgs,
		Annotations: needsArtifact(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			eng, _, err := a.loadEngine(nil)
			if err != nil {
				return err
			}
			defer eng.Close()

			rk, err := eng.Rank()
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), report.NewRanking(rk))
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return err
			}
			return text.New(tag).Ranking(cmd.OutOrStdout(), rk)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "text or json")
	cmd.Flags().StringVar(&lang, "lang", "en", "BCP 47 tag for number formatting")
	return cmd
}
