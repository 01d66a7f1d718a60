package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/plot"
	"github.com/signalnine/trialbook/internal/report"
)

func newPlotsCmd() *cobra.Command {
	var (
		f       sourceFlags
		density int
	)
	cmd := &cobra.Command{
		Use:   "plots [snapshot]",
		Short: "Emit the standard figures for an experiment as JSON",
		Long:  "Emit the objective trace and, when the search space has range parameters, a slice or contour of the objective interpolated from the observed trials.",
		Args:  f.args(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if density < 2 {
				return fmt.Errorf("--density must be at least 2")
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			exp, err := f.load(ctx, e, args)
			if err != nil {
				return err
			}
			data, err := exp.FetchData(ctx, nil, nil)
			if err != nil {
				return err
			}
			gs := plot.StaticStrategy{
				Transitions: exp.ModelTransitions(),
				Bridge:      plot.NewObservedBridge(exp.SearchSpace(), exp.ArmsByName(), data),
			}

			figs, err := report.New(e.log, &plot.Builder{GridDensity: density}).StandardPlots(ctx, exp, gs)
			if err != nil {
				return err
			}
			if figs == nil {
				figs = []*plot.Figure{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(figs)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&density, "density", 50, "grid points per axis for slice and contour plots")
	return cmd
}
