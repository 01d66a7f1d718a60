// Package plot builds renderer-agnostic figures from experiment data and
// model predictions. Figures are plain data; drawing them is left to callers.
package plot

import (
	"errors"

	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/optim"
)

type Kind string

const (
	KindTrace   Kind = "trace"
	KindSlice   Kind = "slice"
	KindContour Kind = "contour"
)

// Series is one trace of a figure. Contour series fill Z, indexed [y][x].
type Series struct {
	Name   string      `json:"name"`
	Mode   string      `json:"mode,omitempty"`
	X      []float64   `json:"x"`
	Y      []float64   `json:"y"`
	Z      [][]float64 `json:"z,omitempty"`
	Labels []string    `json:"labels,omitempty"`
}

type Figure struct {
	Kind   Kind     `json:"kind"`
	Title  string   `json:"title"`
	XLabel string   `json:"x_label,omitempty"`
	YLabel string   `json:"y_label,omitempty"`
	Series []Series `json:"series"`
	// ModelTransitions marks iterations where the generation strategy changed models.
	ModelTransitions []int `json:"model_transitions,omitempty"`
}

// SeriesByName returns the named series, or nil.
func (f *Figure) SeriesByName(name string) *Series {
	for i := range f.Series {
		if f.Series[i].Name == name {
			return &f.Series[i]
		}
	}
	return nil
}

// ErrPredictUnsupported is returned by models that cannot make predictions.
var ErrPredictUnsupported = errors.New("model does not support prediction")

// ModelBridge is a fitted model that can predict metric outcomes at
// parameterizations of its search space.
type ModelBridge interface {
	SearchSpace() *optim.SearchSpace
	// Predict returns one mean (and variance, on the covariance diagonal) per
	// metric per point, in point order.
	Predict(points []map[string]any) (*genrun.ModelPredictions, error)
}

// GenerationStrategy is the sequence of models that proposed an experiment's trials.
type GenerationStrategy interface {
	ModelTransitions() []int
	// Model is the current fitted model, or nil when none is fitted.
	Model() ModelBridge
}

// StaticStrategy is a GenerationStrategy with fixed contents.
type StaticStrategy struct {
	Transitions []int
	Bridge      ModelBridge
}

func (s StaticStrategy) ModelTransitions() []int { return s.Transitions }
func (s StaticStrategy) Model() ModelBridge { return s.Bridge }

type TraceOptions struct {
	Title            string
	YLabel           string
	ModelTransitions []int
	Minimize         bool
	// PlotTrialPoints adds the raw per-iteration values next to the best-so-far line.
	PlotTrialPoints bool
}

// Plotter produces the standard figures.
type Plotter interface {
	ObjectiveTrace(values []float64, opts TraceOptions) (*Figure, error)
	// Slice plots the metric along one range parameter, holding the others fixed.
	// runs are keyed by display label and contribute in-sample points.
	Slice(model ModelBridge, param, metric string, runs map[string]*genrun.GeneratorRun) (*Figure, error)
	// Contour plots the metric over the first two range parameters.
	Contour(model ModelBridge, metric string) (*Figure, error)
}
