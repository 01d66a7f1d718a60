package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/report"
)

func newGenrunCmd() *cobra.Command {
	var save, format string
	cmd := &cobra.Command{
		Use:   "genrun <record.yaml>",
		Short: "Validate a generator run record and summarize it",
		Long:  "Build a generator run from a YAML record, merging arms that share a signature, then print a summary and its arms. With --save the run is stored against an experiment.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			g, err := loadGeneratorRun(args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = e.cfg.Report.Format
			}

			out := cmd.OutOrStdout()
			printGeneratorRun(out, g)
			tbl, err := g.ParamTable()
			if err != nil {
				return err
			}
			if tbl.HasColumn("weight") {
				return errdefs.InvalidArgumentf("a parameter named %q collides with the weight column", "weight")
			}
			weights := make([]any, 0, tbl.Len())
			for _, w := range g.Weights() {
				weights = append(weights, w)
			}
			if err := tbl.SetColumn("weight", weights); err != nil {
				return err
			}
			if err := report.Render(out, tbl, format); err != nil {
				return err
			}

			if save == "" {
				return nil
			}
			ctx := cmd.Context()
			s, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			id, err := s.SaveGeneratorRun(ctx, save, g)
			if err != nil {
				return fmt.Errorf("saving generator run: %w", err)
			}
			e.log.WithField("experiment", save).Infof("saved generator run %s", id)
			fmt.Fprintf(out, "saved %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "store the run against this experiment")
	cmd.Flags().StringVar(&format, "format", "", "arm table format (table, markdown, json, csv)")
	return cmd
}

func loadGeneratorRun(path string) (*genrun.GeneratorRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading generator run: %w", err)
	}
	var rec genrun.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing generator run %s: %w", path, err)
	}
	g, err := genrun.FromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("invalid generator run %s: %w", path, err)
	}
	return g, nil
}

func printGeneratorRun(w io.Writer, g *genrun.GeneratorRun) {
	fmt.Fprintln(w, g)
	fmt.Fprintf(w, "  created:  %s\n", humanize.Time(g.TimeCreated()))
	if g.Type() != "" {
		fmt.Fprintf(w, "  type:     %s\n", g.Type())
	}
	if key := g.ModelKey(); key != "" {
		if step, ok := g.GenerationStepIndex(); ok {
			key += " (step " + strconv.Itoa(step) + ")"
		}
		fmt.Fprintf(w, "  model:    %s\n", key)
	}
	if idx, ok := g.Index(); ok {
		fmt.Fprintf(w, "  trial:    %d\n", idx)
	}
	if d := g.FitTime(); d != nil {
		fmt.Fprintf(w, "  fit time: %s\n", d)
	}
	if d := g.GenTime(); d != nil {
		fmt.Fprintf(w, "  gen time: %s\n", d)
	}
	if best := g.BestArmPredictions(); best != nil && best.Arm != nil {
		fmt.Fprintf(w, "  best arm: %s\n", best.Arm.NameOrShortSignature())
	}
}
