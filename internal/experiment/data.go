package experiment

import (
	"cmp"
	"maps"
	"slices"

	"github.com/signalnine/trialbook/internal/table"
)

// Long-format column names.
const (
	ColTrialIndex = "trial_index"
	ColArmName    = "arm_name"
	ColMetricName = "metric_name"
	ColMean       = "mean"
	ColSEM        = "sem"
)

// Observation is one (trial, arm, metric) measurement. Extra carries
// source-specific columns such as start_time or fidelity.
type Observation struct {
	TrialIndex int            `json:"trial_index" yaml:"trial_index"`
	ArmName    string         `json:"arm_name" yaml:"arm_name"`
	MetricName string         `json:"metric_name" yaml:"metric_name"`
	Mean       float64        `json:"mean" yaml:"mean"`
	SEM        *float64       `json:"sem,omitempty" yaml:"sem,omitempty"`
	Extra      map[string]any `json:"extra,omitempty" yaml:",inline"`
}

func (o Observation) clone() Observation {
	if o.SEM != nil {
		sem := *o.SEM
		o.SEM = &sem
	}
	o.Extra = maps.Clone(o.Extra)
	return o
}

type Data struct {
	Observations []Observation
}

func (d *Data) Empty() bool {
	return d == nil || len(d.Observations) == 0
}

// Table returns the observations in long format: trial_index, arm_name,
// metric_name, mean and sem, then any extra columns in name order.
func (d *Data) Table() *table.Table {
	leading := []string{ColTrialIndex, ColArmName, ColMetricName, ColMean, ColSEM}
	if d == nil {
		return table.New(leading...)
	}
	records := make([]map[string]any, len(d.Observations))
	for i, o := range d.Observations {
		rec := make(map[string]any, len(leading)+len(o.Extra))
		for k, v := range o.Extra {
			rec[k] = v
		}
		rec[ColTrialIndex] = o.TrialIndex
		rec[ColArmName] = o.ArmName
		rec[ColMetricName] = o.MetricName
		rec[ColMean] = o.Mean
		if o.SEM != nil {
			rec[ColSEM] = *o.SEM
		}
		records[i] = rec
	}
	return table.FromRecords(records, leading...)
}

// MetricValues returns the means of one metric ordered by trial index.
// Observations of the same trial keep their data order.
func (d *Data) MetricValues(metric string) []float64 {
	if d == nil {
		return nil
	}
	var obs []Observation
	for _, o := range d.Observations {
		if o.MetricName == metric {
			obs = append(obs, o)
		}
	}
	slices.SortStableFunc(obs, func(a, b Observation) int {
		return cmp.Compare(a.TrialIndex, b.TrialIndex)
	})
	var out []float64
	for _, o := range obs {
		out = append(out, o.Mean)
	}
	return out
}
