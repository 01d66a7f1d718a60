// Package genrun records the output of one invocation of a candidate generator:
// the proposed arms, their weights, and the provenance of the generation.
package genrun

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/optim"
	"github.com/signalnine/trialbook/internal/table"
)

type RunType string

const (
	StatusQuo RunType = "STATUS_QUO"
	Manual    RunType = "MANUAL"
)

// ArmWeight ties an arm to its weight within a run.
type ArmWeight struct {
	Arm    *arm.Arm
	Weight float64
}

// Options carries everything about a run except its arms. A nil map or pointer
// means the field is absent.
type Options struct {
	// Weights default to 1.0 per arm.
	Weights             []float64
	OptimizationConfig  *optim.OptimizationConfig
	SearchSpace         *optim.SearchSpace
	ModelPredictions    *ModelPredictions
	BestArmPredictions  *BestArmPrediction
	Type                RunType
	FitTime             *time.Duration
	GenTime             *time.Duration
	ModelKey            string
	ModelKwargs         map[string]any
	BridgeKwargs        map[string]any
	GenMetadata         map[string]any
	ModelStateAfterGen  map[string]any
	GenerationStepIndex *int
	// CandidateMetadataByArmSignature keys must be signatures of arms in the run.
	CandidateMetadataByArmSignature map[string]map[string]any
}

// GeneratorRun is fixed at construction apart from its trial index, which can
// be assigned once.
type GeneratorRun struct {
	// arm weights in first-occurrence order; bySignature points into it
	table       []ArmWeight
	bySignature map[string]int

	runType             RunType
	timeCreated         time.Time
	optimizationConfig  *optim.OptimizationConfig
	searchSpace         *optim.SearchSpace
	modelPredictions    *ModelPredictions
	bestArmPredictions  *BestArmPrediction
	index               *int
	fitTime             *time.Duration
	genTime             *time.Duration
	modelKey            string
	modelKwargs         map[string]any
	bridgeKwargs        map[string]any
	genMetadata         map[string]any
	modelStateAfterGen  map[string]any
	generationStepIndex *int
	candidateMetadata   map[string]map[string]any
}

// New builds a run from arms and options. Arms sharing a signature collapse
// into one entry, at the first occurrence, whose weight is the sum of theirs.
func New(arms []*arm.Arm, opts *Options) (*GeneratorRun, error) {
	if opts == nil {
		opts = &Options{}
	}
	weights := opts.Weights
	if weights == nil {
		weights = make([]float64, len(arms))
		for i := range weights {
			weights[i] = 1.0
		}
	}
	if len(arms) != len(weights) {
		return nil, errdefs.InvalidArgumentf("weights and arms must have the same length (%d weights, %d arms)", len(weights), len(arms))
	}
	if opts.ModelKwargs != nil || opts.BridgeKwargs != nil {
		if opts.ModelKey == "" {
			return nil, errdefs.InvalidArgumentf("model key is required if model or bridge kwargs are provided")
		}
		if opts.ModelKwargs == nil || opts.BridgeKwargs == nil {
			return nil, errdefs.InvalidArgumentf("both model kwargs and bridge kwargs are required if either one is provided")
		}
	}
	if opts.GenerationStepIndex != nil && *opts.GenerationStepIndex < 0 {
		return nil, errdefs.InvalidArgumentf("generation step index must be non-negative, got %d", *opts.GenerationStepIndex)
	}

	g := &GeneratorRun{
		bySignature:         make(map[string]int, len(arms)),
		runType:             opts.Type,
		timeCreated:         time.Now(),
		optimizationConfig:  opts.OptimizationConfig,
		searchSpace:         opts.SearchSpace,
		modelPredictions:    opts.ModelPredictions,
		bestArmPredictions:  opts.BestArmPredictions,
		fitTime:             opts.FitTime,
		genTime:             opts.GenTime,
		modelKey:            opts.ModelKey,
		modelKwargs:         copyMap(opts.ModelKwargs),
		bridgeKwargs:        copyMap(opts.BridgeKwargs),
		genMetadata:         copyMap(opts.GenMetadata),
		modelStateAfterGen:  copyMap(opts.ModelStateAfterGen),
		generationStepIndex: copyInt(opts.GenerationStepIndex),
	}
	for i, a := range arms {
		if a == nil {
			return nil, errdefs.InvalidArgumentf("arm %d is nil", i)
		}
		sig := a.Signature()
		if pos, ok := g.bySignature[sig]; ok {
			g.table[pos].Weight += weights[i]
			continue
		}
		g.bySignature[sig] = len(g.table)
		g.table = append(g.table, ArmWeight{Arm: a, Weight: weights[i]})
	}

	if len(opts.CandidateMetadataByArmSignature) > 0 {
		var unknown []string
		for sig := range opts.CandidateMetadataByArmSignature {
			if _, ok := g.bySignature[sig]; !ok {
				unknown = append(unknown, sig)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, errdefs.InvalidArgumentf("arms with signatures %s appear in candidate metadata, but not among the arms on this generator run", strings.Join(unknown, ", "))
		}
	}
	g.candidateMetadata = copyCandidateMetadata(opts.CandidateMetadataByArmSignature)
	return g, nil
}

// Arms returns the run's distinct arms in first-occurrence order.
func (g *GeneratorRun) Arms() []*arm.Arm {
	out := make([]*arm.Arm, len(g.table))
	for i, aw := range g.table {
		out[i] = aw.Arm
	}
	return out
}

func (g *GeneratorRun) ArmSignatures() map[string]struct{} {
	out := make(map[string]struct{}, len(g.table))
	for sig := range g.bySignature {
		out[sig] = struct{}{}
	}
	return out
}

// Weights are in the same order as Arms.
func (g *GeneratorRun) Weights() []float64 {
	out := make([]float64, len(g.table))
	for i, aw := range g.table {
		out[i] = aw.Weight
	}
	return out
}

// ArmWeights is the ordered arm to weight mapping.
func (g *GeneratorRun) ArmWeights() []ArmWeight {
	return slices.Clone(g.table)
}

// WeightOf returns the weight of the arm with the given signature.
func (g *GeneratorRun) WeightOf(signature string) (float64, bool) {
	pos, ok := g.bySignature[signature]
	if !ok {
		return 0, false
	}
	return g.table[pos].Weight, true
}

func (g *GeneratorRun) TotalWeight() float64 {
	var total float64
	for _, aw := range g.table {
		total += aw.Weight
	}
	return total
}

func (g *GeneratorRun) Type() RunType { return g.runType }
func (g *GeneratorRun) TimeCreated() time.Time { return g.timeCreated }
func (g *GeneratorRun) OptimizationConfig() *optim.OptimizationConfig { return g.optimizationConfig }
func (g *GeneratorRun) SearchSpace() *optim.SearchSpace { return g.searchSpace }
func (g *GeneratorRun) ModelPredictions() *ModelPredictions { return g.modelPredictions }
func (g *GeneratorRun) BestArmPredictions() *BestArmPrediction { return g.bestArmPredictions }
func (g *GeneratorRun) FitTime() *time.Duration { return g.fitTime }
func (g *GeneratorRun) GenTime() *time.Duration { return g.genTime }
func (g *GeneratorRun) ModelKey() string { return g.modelKey }
func (g *GeneratorRun) ModelKwargs() map[string]any { return g.modelKwargs }
func (g *GeneratorRun) BridgeKwargs() map[string]any { return g.bridgeKwargs }
func (g *GeneratorRun) GenMetadata() map[string]any { return g.genMetadata }
func (g *GeneratorRun) ModelStateAfterGen() map[string]any { return g.modelStateAfterGen }

func (g *GeneratorRun) CandidateMetadataByArmSignature() map[string]map[string]any {
	return g.candidateMetadata
}

func (g *GeneratorRun) GenerationStepIndex() (int, bool) {
	if g.generationStepIndex == nil {
		return 0, false
	}
	return *g.generationStepIndex, true
}

// Index is the run's position within its trial, set when the run is added to one.
func (g *GeneratorRun) Index() (int, bool) {
	if g.index == nil {
		return 0, false
	}
	return *g.index, true
}

// SetIndex assigns the trial index. Repeating the current value is a no-op;
// changing an assigned index fails.
func (g *GeneratorRun) SetIndex(index int) error {
	if g.index != nil && *g.index != index {
		return errdefs.InvalidStatef("cannot change the index of a generator run once set (have %d, got %d)", *g.index, index)
	}
	g.index = &index
	return nil
}

// ModelPredictionsByArm slices the run's model predictions per arm, keyed by
// arm signature. It returns nil when the run has no predictions.
func (g *GeneratorRun) ModelPredictionsByArm() (map[string]ArmPrediction, error) {
	if g.modelPredictions == nil {
		return nil, nil
	}
	out := make(map[string]ArmPrediction, len(g.table))
	for idx, aw := range g.table {
		p, err := ExtractArmPrediction(g.modelPredictions, idx)
		if err != nil {
			return nil, err
		}
		out[aw.Arm.Signature()] = p
	}
	return out, nil
}

// ColArm labels the rows of ParamTable.
const ColArm = "arm"

// ParamTable has one row per arm, labelled in the ColArm column, and one
// column per parameter name. A parameter named ColArm is rejected.
func (g *GeneratorRun) ParamTable() (*table.Table, error) {
	records := make([]map[string]any, len(g.table))
	for i, aw := range g.table {
		if _, ok := aw.Arm.Parameters[ColArm]; ok {
			return nil, errdefs.InvalidArgumentf("arm %s has a parameter named %q, which is reserved for the arm label", aw.Arm.NameOrShortSignature(), ColArm)
		}
		rec := make(map[string]any, len(aw.Arm.Parameters)+1)
		for k, v := range aw.Arm.Parameters {
			rec[k] = v
		}
		rec[ColArm] = aw.Arm.NameOrShortSignature()
		records[i] = rec
	}
	return table.FromRecords(records, ColArm), nil
}

// UniqueID identifies the run for ordering: the trial index when set, else the
// generation step index. Runs attached to neither return ErrNotAttached.
func (g *GeneratorRun) UniqueID() (string, error) {
	if g.index != nil {
		return strconv.Itoa(*g.index), nil
	}
	if g.generationStepIndex != nil {
		return strconv.Itoa(*g.generationStepIndex), nil
	}
	return "", errdefs.ErrNotAttached
}

// Clone returns a deep copy that shares no mutable state with g. Creation
// time, trial index, generation step and model key carry over.
func (g *GeneratorRun) Clone() *GeneratorRun {
	c := &GeneratorRun{
		table:               make([]ArmWeight, len(g.table)),
		bySignature:         make(map[string]int, len(g.bySignature)),
		runType:             g.runType,
		timeCreated:         g.timeCreated,
		optimizationConfig:  g.optimizationConfig.Clone(),
		searchSpace:         g.searchSpace.Clone(),
		modelPredictions:    g.modelPredictions.Clone(),
		bestArmPredictions:  g.bestArmPredictions.Clone(),
		index:               copyInt(g.index),
		fitTime:             copyDuration(g.fitTime),
		genTime:             copyDuration(g.genTime),
		modelKey:            g.modelKey,
		modelKwargs:         copyMap(g.modelKwargs),
		bridgeKwargs:        copyMap(g.bridgeKwargs),
		genMetadata:         copyMap(g.genMetadata),
		modelStateAfterGen:  copyMap(g.modelStateAfterGen),
		generationStepIndex: copyInt(g.generationStepIndex),
		candidateMetadata:   copyCandidateMetadata(g.candidateMetadata),
	}
	for i, aw := range g.table {
		c.table[i] = ArmWeight{Arm: aw.Arm.Clone(), Weight: aw.Weight}
	}
	for sig, pos := range g.bySignature {
		c.bySignature[sig] = pos
	}
	return c
}

func (g *GeneratorRun) String() string {
	return fmt.Sprintf("GeneratorRun(%d arms, total weight %g)", len(g.table), g.TotalWeight())
}

// Compare orders runs by unique id.
func Compare(a, b *GeneratorRun) (int, error) {
	ida, err := a.UniqueID()
	if err != nil {
		return 0, err
	}
	idb, err := b.UniqueID()
	if err != nil {
		return 0, err
	}
	return strings.Compare(ida, idb), nil
}

// SortByUniqueID sorts runs in place. It fails before sorting if any run has no id.
func SortByUniqueID(runs []*GeneratorRun) error {
	ids := make(map[*GeneratorRun]string, len(runs))
	for _, r := range runs {
		id, err := r.UniqueID()
		if err != nil {
			return err
		}
		ids[r] = id
	}
	sort.SliceStable(runs, func(i, j int) bool { return ids[runs[i]] < ids[runs[j]] })
	return nil
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return copystructure.Must(copystructure.Copy(m)).(map[string]any)
}

func copyCandidateMetadata(m map[string]map[string]any) map[string]map[string]any {
	if m == nil {
		return nil
	}
	return copystructure.Must(copystructure.Copy(m)).(map[string]map[string]any)
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyDuration(p *time.Duration) *time.Duration {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
