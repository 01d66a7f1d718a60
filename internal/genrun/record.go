package genrun

import (
	"time"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/optim"
)

// Record is the serializable form of a GeneratorRun.
type Record struct {
	Arms                            []*arm.Arm                `json:"arms" yaml:"arms"`
	Weights                         []float64                 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Type                            RunType                   `json:"type,omitempty" yaml:"type,omitempty"`
	TimeCreated                     time.Time                 `json:"time_created,omitempty" yaml:"time_created,omitempty"`
	Index                           *int                      `json:"index,omitempty" yaml:"index,omitempty"`
	OptimizationConfig              *optim.OptimizationConfig `json:"optimization_config,omitempty" yaml:"optimization_config,omitempty"`
	SearchSpace                     *optim.SearchSpace        `json:"search_space,omitempty" yaml:"search_space,omitempty"`
	ModelPredictions                *ModelPredictions         `json:"model_predictions,omitempty" yaml:"model_predictions,omitempty"`
	BestArmPredictions              *BestArmPrediction        `json:"best_arm_predictions,omitempty" yaml:"best_arm_predictions,omitempty"`
	FitTime                         *time.Duration            `json:"fit_time,omitempty" yaml:"fit_time,omitempty"`
	GenTime                         *time.Duration            `json:"gen_time,omitempty" yaml:"gen_time,omitempty"`
	ModelKey                        string                    `json:"model_key,omitempty" yaml:"model_key,omitempty"`
	ModelKwargs                     map[string]any            `json:"model_kwargs,omitempty" yaml:"model_kwargs,omitempty"`
	BridgeKwargs                    map[string]any            `json:"bridge_kwargs,omitempty" yaml:"bridge_kwargs,omitempty"`
	GenMetadata                     map[string]any            `json:"gen_metadata,omitempty" yaml:"gen_metadata,omitempty"`
	ModelStateAfterGen              map[string]any            `json:"model_state_after_gen,omitempty" yaml:"model_state_after_gen,omitempty"`
	GenerationStepIndex             *int                      `json:"generation_step_index,omitempty" yaml:"generation_step_index,omitempty"`
	CandidateMetadataByArmSignature map[string]map[string]any `json:"candidate_metadata_by_arm_signature,omitempty" yaml:"candidate_metadata_by_arm_signature,omitempty"`
}

// Record snapshots the run. The record shares no mutable state with g.
func (g *GeneratorRun) Record() Record {
	c := g.Clone()
	return Record{
		Arms:                            c.Arms(),
		Weights:                         c.Weights(),
		Type:                            c.runType,
		TimeCreated:                     c.timeCreated,
		Index:                           c.index,
		OptimizationConfig:              c.optimizationConfig,
		SearchSpace:                     c.searchSpace,
		ModelPredictions:                c.modelPredictions,
		BestArmPredictions:              c.bestArmPredictions,
		FitTime:                         c.fitTime,
		GenTime:                         c.genTime,
		ModelKey:                        c.modelKey,
		ModelKwargs:                     c.modelKwargs,
		BridgeKwargs:                    c.bridgeKwargs,
		GenMetadata:                     c.genMetadata,
		ModelStateAfterGen:              c.modelStateAfterGen,
		GenerationStepIndex:             c.generationStepIndex,
		CandidateMetadataByArmSignature: c.candidateMetadata,
	}
}

// FromRecord rebuilds a run, validating it as New does. A zero TimeCreated
// means the run is created now.
func FromRecord(rec Record) (*GeneratorRun, error) {
	g, err := New(rec.Arms, &Options{
		Weights:                         rec.Weights,
		OptimizationConfig:              rec.OptimizationConfig,
		SearchSpace:                     rec.SearchSpace,
		ModelPredictions:                rec.ModelPredictions,
		BestArmPredictions:              rec.BestArmPredictions,
		Type:                            rec.Type,
		FitTime:                         rec.FitTime,
		GenTime:                         rec.GenTime,
		ModelKey:                        rec.ModelKey,
		ModelKwargs:                     rec.ModelKwargs,
		BridgeKwargs:                    rec.BridgeKwargs,
		GenMetadata:                     rec.GenMetadata,
		ModelStateAfterGen:              rec.ModelStateAfterGen,
		GenerationStepIndex:             rec.GenerationStepIndex,
		CandidateMetadataByArmSignature: rec.CandidateMetadataByArmSignature,
	})
	if err != nil {
		return nil, err
	}
	if !rec.TimeCreated.IsZero() {
		g.timeCreated = rec.TimeCreated
	}
	if rec.Index != nil {
		if *rec.Index < 0 {
			return nil, errdefs.InvalidArgumentf("generator run index must be non-negative, got %d", *rec.Index)
		}
		if err := g.SetIndex(*rec.Index); err != nil {
			return nil, err
		}
	}
	return g, nil
}
