package plot

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/optim"
	"github.com/signalnine/trialbook/internal/table"
)

// ObservedBridge is a model that only knows the observed data. It predicts by
// inverse-distance weighting of per-arm means over the range parameters,
// normalized to the unit cube; the variance is the weighted spread of the
// neighbours.
type ObservedBridge struct {
	space  *optim.SearchSpace
	ranges []optim.Parameter
	coords [][]float64
	means  map[string][]float64
	// Power is the inverse-distance exponent.
	Power float64
}

var _ ModelBridge = (*ObservedBridge)(nil)

// NewObservedBridge averages each arm's observations per metric. Arms without
// a numeric value for every range parameter are left out.
func NewObservedBridge(space *optim.SearchSpace, arms map[string]*arm.Arm, data *experiment.Data) *ObservedBridge {
	b := &ObservedBridge{space: space, means: map[string][]float64{}, Power: 2}
	for _, name := range space.RangeParameters() {
		p, _ := space.Parameter(name)
		b.ranges = append(b.ranges, p)
	}

	type acc struct{ sum, n float64 }
	byArm := map[string]map[string]*acc{}
	metricSet := map[string]bool{}
	if data != nil {
		for _, o := range data.Observations {
			if byArm[o.ArmName] == nil {
				byArm[o.ArmName] = map[string]*acc{}
			}
			a := byArm[o.ArmName][o.MetricName]
			if a == nil {
				a = &acc{}
				byArm[o.ArmName][o.MetricName] = a
			}
			a.sum += o.Mean
			a.n++
			metricSet[o.MetricName] = true
		}
	}

	names := make([]string, 0, len(byArm))
	for name := range byArm {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a, ok := arms[name]
		if !ok {
			continue
		}
		c, err := b.normalize(a.Parameters)
		if err != nil {
			continue
		}
		b.coords = append(b.coords, c)
		for metric := range metricSet {
			v := math.NaN()
			if m := byArm[name][metric]; m != nil {
				v = m.sum / m.n
			}
			b.means[metric] = append(b.means[metric], v)
		}
	}
	return b
}

func (b *ObservedBridge) SearchSpace() *optim.SearchSpace { return b.space }

// Points is the number of observed arms the bridge interpolates between.
func (b *ObservedBridge) Points() int { return len(b.coords) }

func (b *ObservedBridge) Predict(points []map[string]any) (*genrun.ModelPredictions, error) {
	if len(b.ranges) == 0 {
		return nil, fmt.Errorf("%w: search space has no range parameters", ErrPredictUnsupported)
	}
	if len(b.coords) == 0 {
		return nil, fmt.Errorf("%w: no observed arms", ErrPredictUnsupported)
	}
	out := &genrun.ModelPredictions{
		Means:       make(map[string][]float64, len(b.means)),
		Covariances: make(map[string]map[string][]float64, len(b.means)),
	}
	for metric := range b.means {
		out.Means[metric] = make([]float64, len(points))
		out.Covariances[metric] = map[string][]float64{metric: make([]float64, len(points))}
	}
	for i, pt := range points {
		c, err := b.normalize(pt)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		for metric, observed := range b.means {
			mean, variance := b.interpolate(c, observed)
			out.Means[metric][i] = mean
			out.Covariances[metric][metric][i] = variance
		}
	}
	return out, nil
}

func (b *ObservedBridge) interpolate(c []float64, observed []float64) (mean, variance float64) {
	var weights, values []float64
	for j, v := range observed {
		if math.IsNaN(v) {
			continue
		}
		d := floats.Distance(c, b.coords[j], 2)
		if d == 0 {
			return v, 0
		}
		weights = append(weights, math.Pow(d, -b.Power))
		values = append(values, v)
	}
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	total := floats.Sum(weights)
	mean = floats.Dot(weights, values) / total
	for j, v := range values {
		variance += weights[j] * (v - mean) * (v - mean)
	}
	return mean, variance / total
}

func (b *ObservedBridge) normalize(params map[string]any) ([]float64, error) {
	c := make([]float64, len(b.ranges))
	for i, p := range b.ranges {
		v, ok := table.ToFloat(params[p.Name])
		if !ok {
			return nil, errdefs.InvalidArgumentf("parameter %q is missing or not numeric", p.Name)
		}
		lo, hi := p.Lower, p.Upper
		if p.LogScale && lo > 0 && v > 0 {
			v, lo, hi = math.Log(v), math.Log(lo), math.Log(hi)
		}
		if hi > lo {
			c[i] = (v - lo) / (hi - lo)
		}
	}
	return c, nil
}
