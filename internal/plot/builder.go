package plot

import (
	"fmt"
	"maps"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/optim"
	"github.com/signalnine/trialbook/internal/table"
)

const defaultGridDensity = 50

// Builder is the data-only Plotter.
type Builder struct {
	// GridDensity is the number of grid points per parameter axis.
	GridDensity int
}

func NewBuilder() *Builder {
	return &Builder{GridDensity: defaultGridDensity}
}

var _ Plotter = (*Builder)(nil)

// ObjectiveTrace plots the best value found so far against iteration number.
// NaN values are carried past without improving the best.
func (b *Builder) ObjectiveTrace(values []float64, opts TraceOptions) (*Figure, error) {
	if len(values) == 0 {
		return nil, errdefs.InvalidArgumentf("objective trace needs at least one value")
	}
	iters := iterations(len(values))
	best := make([]float64, len(values))
	current := math.NaN()
	for i, v := range values {
		if !math.IsNaN(v) && (math.IsNaN(current) || (opts.Minimize && v < current) || (!opts.Minimize && v > current)) {
			current = v
		}
		best[i] = current
	}

	title := opts.Title
	if title == "" {
		title = "Best objective found vs. # of iterations"
	}
	fig := &Figure{
		Kind:             KindTrace,
		Title:            title,
		XLabel:           "Iteration",
		YLabel:           opts.YLabel,
		ModelTransitions: opts.ModelTransitions,
		Series:           []Series{{Name: "best", Mode: "lines", X: iters, Y: best}},
	}
	if opts.PlotTrialPoints {
		fig.Series = append(fig.Series, Series{
			Name: "trials",
			Mode: "markers",
			X:    iterations(len(values)),
			Y:    append([]float64(nil), values...),
		})
	}
	return fig, nil
}

func (b *Builder) Slice(model ModelBridge, param, metric string, runs map[string]*genrun.GeneratorRun) (*Figure, error) {
	space := model.SearchSpace()
	p, ok := space.Parameter(param)
	if !ok || p.Type != optim.ParameterRange {
		return nil, errdefs.InvalidArgumentf("slice plot needs range parameter %q in the model's search space", param)
	}
	base := defaultPoint(space)
	grid := b.axis(p)
	points := make([]map[string]any, len(grid))
	for i, x := range grid {
		pt := maps.Clone(base)
		pt[param] = x
		points[i] = pt
	}
	preds, err := model.Predict(points)
	if err != nil {
		return nil, fmt.Errorf("predicting slice of %s: %w", param, err)
	}
	mean, sd, err := metricSeries(preds, metric, len(points))
	if err != nil {
		return nil, err
	}
	upper := make([]float64, len(mean))
	lower := make([]float64, len(mean))
	for i := range mean {
		upper[i] = mean[i] + 2*sd[i]
		lower[i] = mean[i] - 2*sd[i]
	}
	fig := &Figure{
		Kind:   KindSlice,
		Title:  fmt.Sprintf("%s vs. %s", metric, param),
		XLabel: param,
		YLabel: metric,
		Series: []Series{
			{Name: "mean", Mode: "lines", X: grid, Y: mean},
			{Name: "upper", Mode: "lines", X: grid, Y: upper},
			{Name: "lower", Mode: "lines", X: grid, Y: lower},
		},
	}

	keys := make([]string, 0, len(runs))
	for k := range runs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var inSample Series
	var samplePoints []map[string]any
	for _, k := range keys {
		for _, a := range runs[k].Arms() {
			x, ok := table.ToFloat(a.Parameters[param])
			if !ok {
				continue
			}
			pt := maps.Clone(base)
			for name, v := range a.Parameters {
				if _, known := space.Parameter(name); known {
					pt[name] = v
				}
			}
			samplePoints = append(samplePoints, pt)
			inSample.X = append(inSample.X, x)
			inSample.Labels = append(inSample.Labels, k+"/"+a.NameOrShortSignature())
		}
	}
	if len(samplePoints) > 0 {
		preds, err := model.Predict(samplePoints)
		if err != nil {
			return nil, fmt.Errorf("predicting in-sample arms: %w", err)
		}
		inSample.Y, _, err = metricSeries(preds, metric, len(samplePoints))
		if err != nil {
			return nil, err
		}
		inSample.Name = "in-sample"
		inSample.Mode = "markers"
		fig.Series = append(fig.Series, inSample)
	}
	return fig, nil
}

func (b *Builder) Contour(model ModelBridge, metric string) (*Figure, error) {
	space := model.SearchSpace()
	ranges := space.RangeParameters()
	if len(ranges) < 2 {
		return nil, errdefs.InvalidArgumentf("contour plot needs two range parameters, have %d", len(ranges))
	}
	px, _ := space.Parameter(ranges[0])
	py, _ := space.Parameter(ranges[1])
	xs, ys := b.axis(px), b.axis(py)

	base := defaultPoint(space)
	points := make([]map[string]any, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			pt := maps.Clone(base)
			pt[px.Name] = x
			pt[py.Name] = y
			points = append(points, pt)
		}
	}
	preds, err := model.Predict(points)
	if err != nil {
		return nil, fmt.Errorf("predicting contour of %s: %w", metric, err)
	}
	mean, sd, err := metricSeries(preds, metric, len(points))
	if err != nil {
		return nil, err
	}
	meanGrid := make([][]float64, len(ys))
	sdGrid := make([][]float64, len(ys))
	for i := range ys {
		meanGrid[i] = mean[i*len(xs) : (i+1)*len(xs)]
		sdGrid[i] = sd[i*len(xs) : (i+1)*len(xs)]
	}
	return &Figure{
		Kind:   KindContour,
		Title:  fmt.Sprintf("%s over %s and %s", metric, px.Name, py.Name),
		XLabel: px.Name,
		YLabel: py.Name,
		Series: []Series{
			{Name: "mean", X: xs, Y: ys, Z: meanGrid},
			{Name: "sd", X: xs, Y: ys, Z: sdGrid},
		},
	}, nil
}

func (b *Builder) axis(p optim.Parameter) []float64 {
	n := b.GridDensity
	if n < 2 {
		n = defaultGridDensity
	}
	dst := make([]float64, n)
	if p.LogScale && p.Lower > 0 {
		return floats.LogSpan(dst, p.Lower, p.Upper)
	}
	return floats.Span(dst, p.Lower, p.Upper)
}

// defaultPoint is the parameterization plots hold fixed: range parameters at
// their midpoint, choice parameters at their first value, fixed ones at theirs.
func defaultPoint(space *optim.SearchSpace) map[string]any {
	pt := make(map[string]any, len(space.Parameters))
	for _, p := range space.Parameters {
		switch p.Type {
		case optim.ParameterRange:
			if p.LogScale && p.Lower > 0 {
				pt[p.Name] = math.Sqrt(p.Lower * p.Upper)
			} else {
				pt[p.Name] = (p.Lower + p.Upper) / 2
			}
		case optim.ParameterChoice:
			if len(p.Values) > 0 {
				pt[p.Name] = p.Values[0]
			}
		case optim.ParameterFixed:
			pt[p.Name] = p.Value
		}
	}
	return pt
}

func metricSeries(preds *genrun.ModelPredictions, metric string, n int) (mean, sd []float64, err error) {
	if preds == nil {
		return nil, nil, errdefs.InvalidArgumentf("model returned no predictions")
	}
	mean = preds.Means[metric]
	if len(mean) != n {
		return nil, nil, errdefs.InvalidArgumentf("model predicted %d values of %q for %d points", len(mean), metric, n)
	}
	sd = make([]float64, n)
	if variance := preds.Covariances[metric][metric]; len(variance) == n {
		for i, v := range variance {
			sd[i] = math.Sqrt(math.Max(v, 0))
		}
	}
	return mean, sd, nil
}

func iterations(n int) []float64 {
	if n == 1 {
		return []float64{1}
	}
	return floats.Span(make([]float64, n), 1, float64(n))
}
