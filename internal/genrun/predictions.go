package genrun

import (
	"maps"
	"slices"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
)

// ModelPredictions holds model outputs for every arm of a run. Each list is
// indexed by the arm's position in the run.
type ModelPredictions struct {
	Means       map[string][]float64            `json:"means" yaml:"means"`
	Covariances map[string]map[string][]float64 `json:"covariances" yaml:"covariances"`
}

// ArmPrediction is the slice of ModelPredictions for a single arm.
type ArmPrediction struct {
	Means       map[string]float64            `json:"means" yaml:"means"`
	Covariances map[string]map[string]float64 `json:"covariances" yaml:"covariances"`
}

type BestArmPrediction struct {
	Arm        *arm.Arm       `json:"arm" yaml:"arm"`
	Prediction *ArmPrediction `json:"prediction,omitempty" yaml:"prediction,omitempty"`
}

// ExtractArmPrediction returns the mean and covariance entries at position idx.
func ExtractArmPrediction(preds *ModelPredictions, idx int) (ArmPrediction, error) {
	out := ArmPrediction{
		Means:       make(map[string]float64, len(preds.Means)),
		Covariances: make(map[string]map[string]float64, len(preds.Covariances)),
	}
	for metric, values := range preds.Means {
		if idx < 0 || idx >= len(values) {
			return ArmPrediction{}, errdefs.InvalidArgumentf("no mean prediction for metric %q at arm index %d", metric, idx)
		}
		out.Means[metric] = values[idx]
	}
	for metric, row := range preds.Covariances {
		cov := make(map[string]float64, len(row))
		for other, values := range row {
			if idx < 0 || idx >= len(values) {
				return ArmPrediction{}, errdefs.InvalidArgumentf("no covariance prediction for %q/%q at arm index %d", metric, other, idx)
			}
			cov[other] = values[idx]
		}
		out.Covariances[metric] = cov
	}
	return out, nil
}

func (p *ModelPredictions) Clone() *ModelPredictions {
	if p == nil {
		return nil
	}
	out := &ModelPredictions{}
	if p.Means != nil {
		out.Means = make(map[string][]float64, len(p.Means))
		for k, v := range p.Means {
			out.Means[k] = slices.Clone(v)
		}
	}
	if p.Covariances != nil {
		out.Covariances = make(map[string]map[string][]float64, len(p.Covariances))
		for k, row := range p.Covariances {
			r := make(map[string][]float64, len(row))
			for o, v := range row {
				r[o] = slices.Clone(v)
			}
			out.Covariances[k] = r
		}
	}
	return out
}

func (p *ArmPrediction) Clone() *ArmPrediction {
	if p == nil {
		return nil
	}
	out := &ArmPrediction{Means: maps.Clone(p.Means)}
	if p.Covariances != nil {
		out.Covariances = make(map[string]map[string]float64, len(p.Covariances))
		for k, row := range p.Covariances {
			out.Covariances[k] = maps.Clone(row)
		}
	}
	return out
}

func (b *BestArmPrediction) Clone() *BestArmPrediction {
	if b == nil {
		return nil
	}
	out := &BestArmPrediction{Prediction: b.Prediction.Clone()}
	if b.Arm != nil {
		out.Arm = b.Arm.Clone()
	}
	return out
}
