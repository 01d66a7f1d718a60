package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/runner"
)

func newImportCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "import <snapshot>...",
		Short: "Validate experiment snapshots and save them to the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parallel") {
				parallel = e.cfg.Import.Parallel
			}
			ctx := cmd.Context()
			s, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			names := make([]string, len(args))
			jobs := make([]runner.Job, len(args))
			for i, path := range args {
				i, path := i, path
				jobs[i] = func(ctx context.Context) error {
					snap, err := experiment.LoadSnapshot(path)
					if err != nil {
						return err
					}
					if _, err := experiment.FromSnapshot(snap); err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					if err := s.SaveSnapshot(ctx, snap); err != nil {
						return fmt.Errorf("saving %s: %w", snap.Name, err)
					}
					names[i] = snap.Name
					return nil
				}
			}

			errs := runner.RunPool(ctx, parallel, jobs)
			out := cmd.OutOrStdout()
			for i, name := range names {
				if name != "" {
					fmt.Fprintf(out, "imported %s from %s\n", name, args[i])
				}
			}
			for _, err := range errs {
				e.log.WithError(err).Error("Import failed.")
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d snapshots failed to import", len(errs), len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 4, "snapshots to import concurrently; defaults to the config's import.parallel")
	return cmd
}
