package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/optim"
	"github.com/signalnine/trialbook/internal/report"
)

// tableFlags are shared by the commands that build the wide trial table.
type tableFlags struct {
	sourceFlags
	format  string
	metrics []string
	fields  []string
	keys    []string
	shorten bool
}

func (f *tableFlags) register(cmd *cobra.Command) {
	f.sourceFlags.register(cmd)
	cmd.Flags().StringVar(&f.format, "format", "", "output format (table, markdown, json, csv); defaults to the config's report.format")
	cmd.Flags().StringSliceVar(&f.metrics, "metrics", nil, "metrics to include (default all)")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "run metadata fields to append; overrides report.run_metadata_fields")
	cmd.Flags().StringSliceVar(&f.keys, "keys", nil, "key components identifying a row; overrides report.key_components")
	cmd.Flags().BoolVar(&f.shorten, "shorten", false, "shorten metric names to their unique suffixes")
}

func (f *tableFlags) options(e *env) report.TableOptions {
	rc := e.cfg.Report
	opts := report.TableOptions{
		KeyComponents:      rc.KeyComponents,
		RunMetadataFields:  rc.RunMetadataFields,
		ShortenMetricNames: rc.ShortenMetricNames || f.shorten,
		Delimiter:          rc.Delimiter,
	}
	if len(f.keys) > 0 {
		opts.KeyComponents = f.keys
	}
	if len(f.fields) > 0 {
		opts.RunMetadataFields = f.fields
	}
	for _, m := range f.metrics {
		opts.Metrics = append(opts.Metrics, optim.Metric{Name: m})
	}
	return opts
}

func (f *tableFlags) outputFormat(e *env) string {
	if f.format != "" {
		return f.format
	}
	return e.cfg.Report.Format
}

func newTableCmd() *cobra.Command {
	var f tableFlags
	cmd := &cobra.Command{
		Use:   "table [snapshot]",
		Short: "Flatten an experiment into one row per trial and arm",
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
			tbl, err := report.New(e.log, nil).ExpToTable(cmd.Context(), exp, f.options(e))
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), tbl, f.outputFormat(e))
		},
	}
	f.register(cmd)
	return cmd
}
