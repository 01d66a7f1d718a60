package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/experiment"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <snapshot-or-dir>...",
		Short: "Check experiment snapshots without storing them",
		Long:  "Walk the given files and directories, load every .yaml, .yml and .json snapshot, and report whether it describes a valid experiment.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}

			var files []string
			for _, root := range args {
				err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if info.IsDir() {
						return nil
					}
					switch filepath.Ext(path) {
					case ".yaml", ".yml", ".json":
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("walking %s: %w", root, err)
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no snapshot files found in %v", args)
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range files {
				snap, err := experiment.LoadSnapshot(path)
				if err == nil {
					var exp *experiment.Experiment
					exp, err = experiment.FromSnapshot(snap)
					if err == nil {
						fmt.Fprintf(out, "ok      %s: %s, %d trials, %d arms\n", path, exp.Name(), len(exp.TrialIndices()), len(exp.ArmsByName()))
						continue
					}
				}
				failed++
				e.log.WithField("file", path).Debug(err)
				fmt.Fprintf(out, "invalid %s: %v\n", path, err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d snapshots are invalid", failed, len(files))
			}
			return nil
		},
	}
}
