package optim

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/trialbook/internal/errdefs"
)

type Metric struct {
	Name string `json:"name" yaml:"name"`
}

// UnmarshalYAML accepts either `metric: loss` or `metric: {name: loss}`.
func (m *Metric) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Name = value.Value
		return nil
	}
	type plain Metric
	return value.Decode((*plain)(m))
}

func MetricNames(metrics []Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name
	}
	return names
}

type ObjectiveKind string

const (
	ObjectiveSingle     ObjectiveKind = "single"
	ObjectiveMulti      ObjectiveKind = "multi"
	ObjectiveScalarized ObjectiveKind = "scalarized"
)

// Objective is what an experiment minimizes or maximizes. Multi and scalarized
// objectives combine several metrics; Metric is only meaningful for single ones.
type Objective struct {
	Kind     ObjectiveKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Metric   Metric        `json:"metric" yaml:"metric"`
	Minimize bool          `json:"minimize" yaml:"minimize"`
	Metrics  []Metric      `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Weights  []float64     `json:"weights,omitempty" yaml:"weights,omitempty"`
}

func (o Objective) EffectiveKind() ObjectiveKind {
	if o.Kind == "" {
		return ObjectiveSingle
	}
	return o.Kind
}

func (o Objective) Validate() error {
	switch o.EffectiveKind() {
	case ObjectiveSingle:
		if o.Metric.Name == "" {
			return errdefs.InvalidArgumentf("objective metric name is required")
		}
	case ObjectiveMulti:
		if len(o.Metrics) < 2 {
			return errdefs.InvalidArgumentf("multi objective needs at least two metrics")
		}
	case ObjectiveScalarized:
		if len(o.Metrics) == 0 {
			return errdefs.InvalidArgumentf("scalarized objective needs metrics")
		}
		if len(o.Weights) != 0 && len(o.Weights) != len(o.Metrics) {
			return errdefs.InvalidArgumentf("scalarized objective has %d weights for %d metrics", len(o.Weights), len(o.Metrics))
		}
	default:
		return errdefs.InvalidArgumentf("unknown objective kind %q", o.Kind)
	}
	return nil
}

func (o Objective) Clone() Objective {
	o.Metrics = slices.Clone(o.Metrics)
	o.Weights = slices.Clone(o.Weights)
	return o
}

type OutcomeConstraint struct {
	Metric   Metric  `json:"metric" yaml:"metric"`
	Op       string  `json:"op" yaml:"op"`
	Bound    float64 `json:"bound" yaml:"bound"`
	Relative bool    `json:"relative,omitempty" yaml:"relative,omitempty"`
}

func (c OutcomeConstraint) String() string {
	rel := ""
	if c.Relative {
		rel = "%"
	}
	return fmt.Sprintf("%s %s %g%s", c.Metric.Name, c.Op, c.Bound, rel)
}

type OptimizationConfig struct {
	Objective          Objective           `json:"objective" yaml:"objective"`
	OutcomeConstraints []OutcomeConstraint `json:"outcome_constraints,omitempty" yaml:"outcome_constraints,omitempty"`
}

func (c *OptimizationConfig) Clone() *OptimizationConfig {
	if c == nil {
		return nil
	}
	return &OptimizationConfig{
		Objective:          c.Objective.Clone(),
		OutcomeConstraints: slices.Clone(c.OutcomeConstraints),
	}
}
