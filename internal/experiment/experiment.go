// Package experiment is the data source the reports read from: trials, their
// arms and generator runs, and long-format metric observations.
package experiment

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/optim"
)

// Source is anything the reports can flatten into a table.
type Source interface {
	Name() string
	// FetchData returns long-format observations for the given metrics, or for
	// every metric when metrics is empty. Options are source specific.
	FetchData(ctx context.Context, metrics []optim.Metric, opts map[string]any) (*Data, error)
	ArmsByName() map[string]*arm.Arm
	Trials() map[int]*Trial
	OptimizationConfig() *optim.OptimizationConfig
	SearchSpace() *optim.SearchSpace
}

// MultiTyped is implemented by sources whose trials run under different
// trial types, each with its own metrics. Such sources cannot be tabulated.
type MultiTyped interface {
	IsMultiType() bool
}

type TrialStatus string

const (
	StatusCandidate    TrialStatus = "CANDIDATE"
	StatusStaged       TrialStatus = "STAGED"
	StatusRunning      TrialStatus = "RUNNING"
	StatusCompleted    TrialStatus = "COMPLETED"
	StatusFailed       TrialStatus = "FAILED"
	StatusAbandoned    TrialStatus = "ABANDONED"
	StatusEarlyStopped TrialStatus = "EARLY_STOPPED"
)

var statuses = []TrialStatus{
	StatusCandidate, StatusStaged, StatusRunning, StatusCompleted,
	StatusFailed, StatusAbandoned, StatusEarlyStopped,
}

func (s TrialStatus) Valid() bool {
	return slices.Contains(statuses, s)
}

// Terminal reports whether the trial can no longer change status.
func (s TrialStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAbandoned, StatusEarlyStopped:
		return true
	}
	return false
}

type Trial struct {
	Index       int
	Status      TrialStatus
	Type        string
	RunMetadata map[string]any

	generatorRuns []*genrun.GeneratorRun
}

func NewTrial(index int, status TrialStatus) *Trial {
	return &Trial{Index: index, Status: status, RunMetadata: map[string]any{}}
}

// AddGeneratorRun attaches g to the trial, assigning its index within the trial.
func (t *Trial) AddGeneratorRun(g *genrun.GeneratorRun) error {
	if err := g.SetIndex(len(t.generatorRuns)); err != nil {
		return fmt.Errorf("attaching generator run to trial %d: %w", t.Index, err)
	}
	t.generatorRuns = append(t.generatorRuns, g)
	return nil
}

func (t *Trial) GeneratorRuns() []*genrun.GeneratorRun {
	return slices.Clone(t.generatorRuns)
}

// GeneratorRun returns the trial's generator run when it has exactly one.
func (t *Trial) GeneratorRun() (*genrun.GeneratorRun, bool) {
	if len(t.generatorRuns) != 1 {
		return nil, false
	}
	return t.generatorRuns[0], true
}

// Arms lists the distinct arms across the trial's generator runs.
func (t *Trial) Arms() []*arm.Arm {
	var out []*arm.Arm
	seen := make(map[string]bool)
	for _, g := range t.generatorRuns {
		for _, a := range g.Arms() {
			sig := a.Signature()
			if seen[sig] {
				continue
			}
			seen[sig] = true
			out = append(out, a)
		}
	}
	return out
}

// Experiment is an in-memory Source.
type Experiment struct {
	name               string
	description        string
	arms               map[string]*arm.Arm
	trials             map[int]*Trial
	observations       []Observation
	optimizationConfig *optim.OptimizationConfig
	searchSpace        *optim.SearchSpace
	modelTransitions   []int
	trialTypes         []string
}

func (e *Experiment) Name() string { return e.name }
func (e *Experiment) Description() string { return e.description }

func (e *Experiment) ArmsByName() map[string]*arm.Arm {
	return maps.Clone(e.arms)
}

func (e *Experiment) Trials() map[int]*Trial {
	return maps.Clone(e.trials)
}

// TrialIndices returns trial indices in ascending order.
func (e *Experiment) TrialIndices() []int {
	out := make([]int, 0, len(e.trials))
	for idx := range e.trials {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (e *Experiment) OptimizationConfig() *optim.OptimizationConfig { return e.optimizationConfig }
func (e *Experiment) SearchSpace() *optim.SearchSpace { return e.searchSpace }

// ModelTransitions are the trial indices at which the generation strategy
// switched models.
func (e *Experiment) ModelTransitions() []int {
	return slices.Clone(e.modelTransitions)
}

func (e *Experiment) IsMultiType() bool {
	return len(e.trialTypes) > 0
}

// FetchData filters the stored observations. The "trial_indices" option, an
// []int, restricts the result to those trials.
func (e *Experiment) FetchData(ctx context.Context, metrics []optim.Metric, opts map[string]any) (*Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var trialFilter map[int]bool
	if raw, ok := opts["trial_indices"]; ok {
		indices, ok := raw.([]int)
		if !ok {
			return nil, errdefs.InvalidArgumentf("trial_indices option must be []int, got %T", raw)
		}
		trialFilter = make(map[int]bool, len(indices))
		for _, i := range indices {
			trialFilter[i] = true
		}
	}
	var names map[string]bool
	if len(metrics) > 0 {
		names = make(map[string]bool, len(metrics))
		for _, m := range metrics {
			names[m.Name] = true
		}
	}

	data := &Data{}
	for _, o := range e.observations {
		if names != nil && !names[o.MetricName] {
			continue
		}
		if trialFilter != nil && !trialFilter[o.TrialIndex] {
			continue
		}
		data.Observations = append(data.Observations, o.clone())
	}
	return data, nil
}

func (e *Experiment) String() string {
	return fmt.Sprintf("Experiment(%s)", e.name)
}
