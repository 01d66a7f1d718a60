package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/optim"
)

// Snapshot is the file form of an experiment.
type Snapshot struct {
	Name               string                    `json:"name" yaml:"name"`
	Description        string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Arms               []*arm.Arm                `json:"arms" yaml:"arms"`
	Trials             []TrialSnapshot           `json:"trials" yaml:"trials"`
	Observations       []Observation             `json:"observations,omitempty" yaml:"observations,omitempty"`
	OptimizationConfig *optim.OptimizationConfig `json:"optimization_config,omitempty" yaml:"optimization_config,omitempty"`
	SearchSpace        *optim.SearchSpace        `json:"search_space,omitempty" yaml:"search_space,omitempty"`
	ModelTransitions   []int                     `json:"model_transitions,omitempty" yaml:"model_transitions,omitempty"`
	// TrialTypes is set on experiments that mix trial types.
	TrialTypes []string `json:"trial_types,omitempty" yaml:"trial_types,omitempty"`
}

type TrialSnapshot struct {
	Index  int         `json:"index" yaml:"index"`
	Status TrialStatus `json:"status" yaml:"status"`
	Type   string      `json:"type,omitempty" yaml:"type,omitempty"`
	// Arms names arms declared on the snapshot; they form the trial's generator run.
	Arms           []string       `json:"arms" yaml:"arms"`
	Weights        []float64      `json:"weights,omitempty" yaml:"weights,omitempty"`
	GenerationStep *int           `json:"generation_step,omitempty" yaml:"generation_step,omitempty"`
	ModelKey       string         `json:"model_key,omitempty" yaml:"model_key,omitempty"`
	RunMetadata    map[string]any `json:"run_metadata,omitempty" yaml:"run_metadata,omitempty"`
}

// LoadSnapshot reads a snapshot from a .json file, or from YAML otherwise.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &snap)
	} else {
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// FromSnapshot validates snap and builds the experiment it describes. Each
// trial gets one generator run holding its arms.
func FromSnapshot(snap *Snapshot) (*Experiment, error) {
	if snap.Name == "" {
		return nil, errdefs.InvalidArgumentf("experiment name is required")
	}
	if snap.OptimizationConfig != nil {
		if err := snap.OptimizationConfig.Objective.Validate(); err != nil {
			return nil, fmt.Errorf("experiment %s: %w", snap.Name, err)
		}
	}
	if snap.SearchSpace != nil {
		if err := snap.SearchSpace.Validate(); err != nil {
			return nil, fmt.Errorf("experiment %s: %w", snap.Name, err)
		}
	}

	e := &Experiment{
		name:               snap.Name,
		description:        snap.Description,
		arms:               make(map[string]*arm.Arm, len(snap.Arms)),
		trials:             make(map[int]*Trial, len(snap.Trials)),
		optimizationConfig: snap.OptimizationConfig.Clone(),
		searchSpace:        snap.SearchSpace.Clone(),
		modelTransitions:   slices.Clone(snap.ModelTransitions),
		trialTypes:         slices.Clone(snap.TrialTypes),
	}
	for i, a := range snap.Arms {
		if a == nil || a.Name == "" {
			return nil, errdefs.InvalidArgumentf("experiment %s: arm %d has no name", snap.Name, i)
		}
		if _, dup := e.arms[a.Name]; dup {
			return nil, errdefs.InvalidArgumentf("experiment %s: duplicate arm name %q", snap.Name, a.Name)
		}
		e.arms[a.Name] = a.Clone()
	}

	for _, ts := range snap.Trials {
		t, err := e.buildTrial(ts)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", snap.Name, err)
		}
		e.trials[t.Index] = t
	}

	for i, o := range snap.Observations {
		if _, ok := e.trials[o.TrialIndex]; !ok {
			return nil, errdefs.InvalidArgumentf("experiment %s: observation %d references unknown trial %d", snap.Name, i, o.TrialIndex)
		}
		if o.MetricName == "" || o.ArmName == "" {
			return nil, errdefs.InvalidArgumentf("experiment %s: observation %d needs an arm and a metric name", snap.Name, i)
		}
		e.observations = append(e.observations, o.clone())
	}
	return e, nil
}

func (e *Experiment) buildTrial(ts TrialSnapshot) (*Trial, error) {
	if ts.Index < 0 {
		return nil, errdefs.InvalidArgumentf("trial index must be non-negative, got %d", ts.Index)
	}
	if _, dup := e.trials[ts.Index]; dup {
		return nil, errdefs.InvalidArgumentf("duplicate trial index %d", ts.Index)
	}
	status := ts.Status
	if status == "" {
		status = StatusCandidate
	}
	if !status.Valid() {
		return nil, errdefs.InvalidArgumentf("trial %d: unknown status %q", ts.Index, ts.Status)
	}
	if ts.Type != "" && !slices.Contains(e.trialTypes, ts.Type) {
		return nil, errdefs.InvalidArgumentf("trial %d: type %q is not declared in trial_types", ts.Index, ts.Type)
	}

	t := NewTrial(ts.Index, status)
	t.Type = ts.Type
	for k, v := range ts.RunMetadata {
		t.RunMetadata[k] = v
	}
	if len(ts.Arms) == 0 {
		return t, nil
	}

	arms := make([]*arm.Arm, len(ts.Arms))
	for i, name := range ts.Arms {
		a, ok := e.arms[name]
		if !ok {
			return nil, errdefs.InvalidArgumentf("trial %d: unknown arm %q", ts.Index, name)
		}
		arms[i] = a
	}
	opts := &genrun.Options{
		Weights:             ts.Weights,
		OptimizationConfig:  e.optimizationConfig.Clone(),
		SearchSpace:         e.searchSpace.Clone(),
		GenerationStepIndex: ts.GenerationStep,
		ModelKey:            ts.ModelKey,
	}
	g, err := genrun.New(arms, opts)
	if err != nil {
		return nil, fmt.Errorf("trial %d: %w", ts.Index, err)
	}
	if err := t.AddGeneratorRun(g); err != nil {
		return nil, err
	}
	return t, nil
}
