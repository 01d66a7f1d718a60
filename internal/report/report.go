// Package report flattens an experiment's trial history into a wide table and
// summarizes it: best trial, standard plots, rendering.
package report

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/optim"
	"github.com/signalnine/trialbook/internal/plot"
	"github.com/signalnine/trialbook/internal/table"
)

// ColTrialStatus holds each row's trial status name.
const ColTrialStatus = "trial_status"

// DefaultKeyComponents identify a row of the wide table.
var DefaultKeyComponents = []string{experiment.ColTrialIndex, experiment.ColArmName}

// Reporter runs the reports, sending best-effort diagnostics to its logger.
type Reporter struct {
	log     log.FieldLogger
	plotter plot.Plotter
}

// New returns a Reporter. A nil logger uses the logrus standard logger and a
// nil plotter uses plot.NewBuilder.
func New(logger log.FieldLogger, plotter plot.Plotter) *Reporter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if plotter == nil {
		plotter = plot.NewBuilder()
	}
	return &Reporter{log: logger, plotter: plotter}
}

type TableOptions struct {
	// Metrics restricts the fetched metrics; empty means all of them.
	Metrics []optim.Metric
	// KeyComponents are the columns that identify a row, like a GROUP BY.
	// They default to trial_index and arm_name and must include both.
	KeyComponents []string
	// RunMetadataFields are copied from each trial's run metadata into columns.
	RunMetadataFields []string
	// FetchOptions are passed through to the source's FetchData.
	FetchOptions map[string]any
	// ShortenMetricNames relabels metric columns with their shortest unique
	// suffixes, split on Delimiter (default ".").
	ShortenMetricNames bool
	Delimiter          string
}

// ExpToTable builds one row per key, one column per metric holding its mean,
// then the key columns, the arm's parameters, the trial status and the
// requested run metadata. Rows are sorted by the key components. Empty data
// yields an empty long-format table.
func (r *Reporter) ExpToTable(ctx context.Context, src experiment.Source, opts TableOptions) (*table.Table, error) {
	tbl, _, err := r.expToTable(ctx, src, opts)
	return tbl, err
}

// expToTable also returns the metric column relabelling it applied.
func (r *Reporter) expToTable(ctx context.Context, src experiment.Source, opts TableOptions) (*table.Table, map[string]string, error) {
	if mt, ok := src.(experiment.MultiTyped); ok && mt.IsMultiType() {
		return nil, nil, errdefs.InvalidArgumentf("cannot transform multi-type experiment %s to a table", src.Name())
	}
	keys := opts.KeyComponents
	if len(keys) == 0 {
		keys = DefaultKeyComponents
	}

	data, err := src.FetchData(ctx, opts.Metrics, opts.FetchOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching data for %s: %w", src.Name(), err)
	}
	results := data.Table()
	if results.Empty() {
		return results, nil, nil
	}
	if err := checkKeyComponents(results, keys); err != nil {
		return nil, nil, err
	}

	keyCol := strings.Join(keys, "-")
	keyVals := make([]any, results.Len())
	for i := range keyVals {
		parts := make([]string, len(keys))
		for j, k := range keys {
			parts[j] = fmt.Sprint(results.Value(i, k))
		}
		keyVals[i] = strings.Join(parts, "\x00")
	}
	if err := results.SetColumn(keyCol, keyVals); err != nil {
		return nil, nil, err
	}

	metricVals, err := results.Pivot(keyCol, experiment.ColMetricName, experiment.ColMean)
	if err != nil {
		return nil, nil, err
	}
	var renamed map[string]string
	if opts.ShortenMetricNames {
		metricVals, renamed, err = r.shortenMetricColumns(metricVals, keyCol, opts.Delimiter)
		if err != nil {
			return nil, nil, err
		}
	}
	metadata, err := results.Distinct(append(slices.Clone(keys), keyCol)...)
	if err != nil {
		return nil, nil, err
	}
	withMetadata, err := metricVals.InnerJoin(metadata, keyCol)
	if err != nil {
		return nil, nil, err
	}
	expTable, err := withMetadata.InnerJoin(armTable(src), experiment.ColArmName)
	if err != nil {
		return nil, nil, err
	}

	trials := src.Trials()
	trialIdx := make([]int, expTable.Len())
	statuses := make([]any, expTable.Len())
	for i := range trialIdx {
		idx, ok := trialIndex(expTable.Value(i, experiment.ColTrialIndex))
		if !ok {
			return nil, nil, errdefs.InvalidArgumentf("trial index %v is not an integer", expTable.Value(i, experiment.ColTrialIndex))
		}
		t, ok := trials[idx]
		if !ok {
			return nil, nil, errdefs.InvalidArgumentf("data references unknown trial %d", idx)
		}
		trialIdx[i] = idx
		statuses[i] = string(t.Status)
	}
	if err := expTable.SetColumn(ColTrialStatus, statuses); err != nil {
		return nil, nil, err
	}

	for _, field := range opts.RunMetadataFields {
		values, present := runMetadataField(trials, field)
		if present == 0 {
			r.log.WithField("field", field).Warnf("Field %s missing for all trials' run_metadata. Not appending column.", field)
			continue
		}
		if present < len(trials) {
			r.log.WithField("field", field).Warnf("Field %s missing for some trials' run_metadata. Returning nil when missing.", field)
		}
		col := make([]any, expTable.Len())
		for i, idx := range trialIdx {
			col[i] = values[idx]
		}
		if err := expTable.SetColumn(field, col); err != nil {
			return nil, nil, err
		}
	}

	sorted, err := expTable.Drop(keyCol).SortBy(keys...)
	if err != nil {
		return nil, nil, err
	}
	return sorted, renamed, nil
}

// BestTrial returns the one-row table of the trial with the best raw objective
// value; ties go to the first row of the sorted table. It returns nil without
// error when there is no answer: a multi or scalarized objective, no rows, or
// no observed objective values.
func (r *Reporter) BestTrial(ctx context.Context, src experiment.Source, opts TableOptions) (*table.Table, error) {
	cfg := src.OptimizationConfig()
	if cfg == nil {
		return nil, errdefs.InvalidArgumentf("experiment %s has no optimization config", src.Name())
	}
	objective := cfg.Objective
	switch objective.EffectiveKind() {
	case optim.ObjectiveMulti:
		r.log.Warn("No best trial is available for multi-objective optimization. Returning nil for best trial.")
		return nil, nil
	case optim.ObjectiveScalarized:
		r.log.Warn("No best trial is available for scalarized objective optimization. Returning nil for best trial.")
		return nil, nil
	}
	if opts.Metrics != nil && !slices.Contains(opts.Metrics, objective.Metric) {
		opts.Metrics = append(slices.Clone(opts.Metrics), objective.Metric)
	}

	trials, renamed, err := r.expToTable(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if trials.Empty() {
		r.log.Warn("Experiment table has 0 trials. Returning nil for best trial.")
		return nil, nil
	}
	metric := objective.Metric.Name
	if short, ok := renamed[metric]; ok {
		metric = short
	}
	var values []float64
	for _, v := range trials.Column(metric) {
		if f, ok := table.ToFloat(v); ok && !table.IsMissing(v) {
			values = append(values, f)
		}
	}
	if len(values) == 0 {
		r.log.WithField("metric", metric).Warn("No trial has a value for the objective metric. Returning nil for best trial.")
		return nil, nil
	}
	var optimum float64
	if objective.Minimize {
		optimum = values[floats.MinIdx(values)]
	} else {
		optimum = values[floats.MaxIdx(values)]
	}
	return trials.Filter(func(row table.Row) bool {
		return table.Compare(row.Get(metric), optimum) == 0
	}).Head(1), nil
}

func checkKeyComponents(results *table.Table, keys []string) error {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !results.HasColumn(k) {
			return errdefs.InvalidArgumentf("key component %q is not a column of the fetched data", k)
		}
		if seen[k] {
			return errdefs.InvalidArgumentf("key component %q is repeated", k)
		}
		seen[k] = true
	}
	for _, required := range DefaultKeyComponents {
		if !seen[required] {
			return errdefs.InvalidArgumentf("key components must include %q", required)
		}
	}
	return nil
}

// armTable has one row per named arm: arm_name then its parameters.
func armTable(src experiment.Source) *table.Table {
	arms := src.ArmsByName()
	names := make([]string, 0, len(arms))
	for name := range arms {
		names = append(names, name)
	}
	sort.Strings(names)
	records := make([]map[string]any, len(names))
	for i, name := range names {
		rec := make(map[string]any, len(arms[name].Parameters)+1)
		for k, v := range arms[name].Parameters {
			rec[k] = v
		}
		rec[experiment.ColArmName] = name
		records[i] = rec
	}
	return table.FromRecords(records, experiment.ColArmName)
}

// runMetadataField maps each trial to its value for field, counting the
// trials that have a non-nil value.
func runMetadataField(trials map[int]*experiment.Trial, field string) (map[int]any, int) {
	values := make(map[int]any, len(trials))
	present := 0
	for idx, t := range trials {
		v, ok := t.RunMetadata[field]
		if ok && v != nil {
			present++
			values[idx] = v
		}
	}
	return values, present
}

func trialIndex(v any) (int, bool) {
	f, ok := table.ToFloat(v)
	if !ok || table.IsMissing(v) || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
