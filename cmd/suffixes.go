package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/report"
	"github.com/signalnine/trialbook/internal/table"
)

func newSuffixesCmd() *cobra.Command {
	var delim, format string
	cmd := &cobra.Command{
		Use:   "suffixes name...",
		Short: "Abbreviate names to their shortest unique suffixes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("delim") {
				delim = e.cfg.Report.Delimiter
			}
			if format == "" {
				format = e.cfg.Report.Format
			}

			suffixes, err := report.New(e.log, nil).ShortestUniqueSuffixes(args, delim)
			if err != nil {
				return err
			}
			tbl := table.New("name", "suffix")
			for _, name := range args {
				if err := tbl.Append(name, suffixes[name]); err != nil {
					return err
				}
			}
			return report.Render(cmd.OutOrStdout(), tbl, format)
		},
	}
	cmd.Flags().StringVar(&delim, "delim", ".", "chunk delimiter; defaults to the config's report.delimiter")
	cmd.Flags().StringVar(&format, "format", "", "output format (table, markdown, json, csv)")
	return cmd
}
