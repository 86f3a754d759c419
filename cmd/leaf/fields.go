package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/crimson-sun/leaf/internal/output/text"
	"github.com/crimson-sun/leaf/internal/report"
)

func newFieldsCmd(_ *app) *cobra.Command {
	var format, lang string
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the sensor fields in model order with bounds and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), report.Fields())
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return err
			}
			return text.New(tag).Fields(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "text or json")
	cmd.Flags().StringVar(&lang, "lang", "en", "BCP 47 tag for number formatting")
	return cmd
}
