package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/experiment"
)

// sourceFlags select an experiment either from a snapshot file argument or
// by name from the store.
type sourceFlags struct {
	experiment string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.experiment, "experiment", "", "load the named experiment from the store instead of a file")
}

func (f *sourceFlags) args() cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if f.experiment != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	}
}

func (f *sourceFlags) load(ctx context.Context, e *env, args []string) (*experiment.Experiment, error) {
	snap, err := f.snapshot(ctx, e, args)
	if err != nil {
		return nil, err
	}
	exp, err := experiment.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("loading experiment %s: %w", snap.Name, err)
	}
	e.log.WithField("experiment", exp.Name()).Debugf("loaded %d trials", len(exp.TrialIndices()))
	return exp, nil
}

func (f *sourceFlags) snapshot(ctx context.Context, e *env, args []string) (*experiment.Snapshot, error) {
	if f.experiment == "" {
		return experiment.LoadSnapshot(args[0])
	}
	s, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	snap, ok, err := s.GetSnapshot(ctx, f.experiment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("experiment %q not found in %s store", f.experiment, e.cfg.Store.Backend)
	}
	return snap, nil
}
