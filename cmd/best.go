package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/report"
)

func newBestCmd() *cobra.Command {
	var f tableFlags
	cmd := &cobra.Command{
		Use:   "best [snapshot]",
		Short: "Show the trial with the best objective value",
		Long:  "Show the row of the trial table holding the optimum of the objective metric. Prints nothing when the objective is multi-objective or scalarized, or when no trial has a value.",
		Args:  f.args(),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			exp, err := f.load(cmd.Context(), e, args)
			if err != nil {
				return err
			}
			best, err := report.New(e.log, nil).BestTrial(cmd.Context(), exp, f.options(e))
			if err != nil || best == nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), best, f.outputFormat(e))
		},
	}
	f.register(cmd)
	return cmd
}
