package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/optim"
	"github.com/signalnine/trialbook/internal/plot"
)

// StandardPlots returns the plots of general interest for a single-objective
// experiment: the objective trace, then the objective against the range
// parameters when the strategy's model can predict (a slice for one range
// parameter, a contour for more). Unsupported objectives and missing data
// give an empty list; individual plot failures are logged and skipped.
func (r *Reporter) StandardPlots(ctx context.Context, src experiment.Source, gs plot.GenerationStrategy) ([]*plot.Figure, error) {
	cfg := src.OptimizationConfig()
	if cfg == nil {
		return nil, errdefs.InvalidArgumentf("experiment %s has no optimization config", src.Name())
	}
	objective := cfg.Objective
	switch objective.EffectiveKind() {
	case optim.ObjectiveMulti:
		r.log.Warn("Standard plots do not support multi-objective optimization experiments. Returning an empty list.")
		return nil, nil
	case optim.ObjectiveScalarized:
		r.log.Warn("Standard plots do not support scalarized objective optimization experiments. Returning an empty list.")
		return nil, nil
	}

	data, err := src.FetchData(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching data for %s: %w", src.Name(), err)
	}
	if data.Empty() {
		r.log.WithField("experiment", src.Name()).Infof("Experiment %s does not yet have data, nothing to plot.", src.Name())
		return nil, nil
	}

	if gs == nil {
		gs = plot.StaticStrategy{}
	}
	metric := objective.Metric.Name
	var figures []*plot.Figure
	trace, err := r.plotter.ObjectiveTrace(data.MetricValues(metric), plot.TraceOptions{
		YLabel:           metric,
		ModelTransitions: gs.ModelTransitions(),
		Minimize:         objective.Minimize,
		PlotTrialPoints:  true,
	})
	if err != nil {
		r.log.WithError(err).WithField("metric", metric).Warn("Skipping objective trace plot.")
	} else {
		figures = append(figures, trace)
	}

	fig, err := r.objectiveVsParamPlot(src, gs.Model(), metric)
	switch {
	case errors.Is(err, plot.ErrPredictUnsupported):
		r.log.WithError(err).Debug("Model cannot predict, skipping objective vs. parameter plot.")
	case err != nil:
		r.log.WithError(err).WithField("metric", metric).Warn("Skipping objective vs. parameter plot.")
	case fig != nil:
		figures = append(figures, fig)
	}
	return figures, nil
}

func (r *Reporter) objectiveVsParamPlot(src experiment.Source, model plot.ModelBridge, metric string) (*plot.Figure, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: generation strategy has no fitted model", plot.ErrPredictUnsupported)
	}
	ranges := src.SearchSpace().RangeParameters()
	switch {
	case len(ranges) == 1:
		runs := make(map[string]*genrun.GeneratorRun)
		for idx, t := range src.Trials() {
			g, ok := t.GeneratorRun()
			if !ok {
				r.log.WithField("trial", idx).Debug("Trial has no single generator run, leaving it out of the slice plot.")
				continue
			}
			runs[strconv.Itoa(idx)] = g
		}
		return r.plotter.Slice(model, ranges[0], metric, runs)
	case len(ranges) > 1:
		return r.plotter.Contour(model, metric)
	}
	r.log.Warn("Objective vs. parameter plot requires a search space with at least one range parameter. Returning nil.")
	return nil, nil
}
