package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/report"
	"github.com/signalnine/trialbook/internal/table"
)

func newListCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list [experiment]",
		Short: "List stored experiments, or the generator runs of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			if format == "" {
				format = e.cfg.Report.Format
			}
			ctx := cmd.Context()
			s, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 0 {
				summaries, err := s.ListSnapshots(ctx)
				if err != nil {
					return err
				}
				tbl := table.New("experiment", "description", "trials", "observations", "generator_runs", "saved")
				for _, sm := range summaries {
					if err := tbl.Append(sm.Name, sm.Description, sm.Trials, sm.Observations, sm.GeneratorRuns, humanize.Time(sm.SavedAt)); err != nil {
						return err
					}
				}
				return report.Render(cmd.OutOrStdout(), tbl, format)
			}

			if _, ok, err := s.GetSnapshot(ctx, args[0]); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("experiment %q not found in %s store", args[0], e.cfg.Store.Backend)
			}
			runs, err := s.ListGeneratorRuns(ctx, args[0])
			if err != nil {
				return err
			}
			tbl := table.New("id", "arms", "total_weight", "model", "saved")
			for _, r := range runs {
				g, err := r.GeneratorRun()
				if err != nil {
					return err
				}
				if err := tbl.Append(r.ID, len(g.Arms()), g.TotalWeight(), g.ModelKey(), humanize.Time(r.SavedAt)); err != nil {
					return err
				}
			}
			return report.Render(cmd.OutOrStdout(), tbl, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format (table, markdown, json, csv)")
	return cmd
}
