package optim

import (
	"slices"

	"github.com/signalnine/trialbook/internal/errdefs"
)

type ParameterType string

const (
	ParameterRange  ParameterType = "range"
	ParameterChoice ParameterType = "choice"
	ParameterFixed  ParameterType = "fixed"
)

type Parameter struct {
	Name     string        `json:"name" yaml:"name"`
	Type     ParameterType `json:"type" yaml:"type"`
	Lower    float64       `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper    float64       `json:"upper,omitempty" yaml:"upper,omitempty"`
	LogScale bool          `json:"log_scale,omitempty" yaml:"log_scale,omitempty"`
	Values   []any         `json:"values,omitempty" yaml:"values,omitempty"`
	Value    any           `json:"value,omitempty" yaml:"value,omitempty"`
}

func (p Parameter) Validate() error {
	if p.Name == "" {
		return errdefs.InvalidArgumentf("parameter name is required")
	}
	switch p.Type {
	case ParameterRange:
		if p.Lower >= p.Upper {
			return errdefs.InvalidArgumentf("parameter %q: lower bound %g must be below upper bound %g", p.Name, p.Lower, p.Upper)
		}
	case ParameterChoice:
		if len(p.Values) == 0 {
			return errdefs.InvalidArgumentf("parameter %q: choice parameter needs values", p.Name)
		}
	case ParameterFixed:
	default:
		return errdefs.InvalidArgumentf("parameter %q: unknown type %q", p.Name, p.Type)
	}
	return nil
}

type SearchSpace struct {
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

func (s *SearchSpace) Validate() error {
	seen := make(map[string]bool, len(s.Parameters))
	for _, p := range s.Parameters {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return errdefs.InvalidArgumentf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// RangeParameters returns the names of range parameters in declaration order.
func (s *SearchSpace) RangeParameters() []string {
	if s == nil {
		return nil
	}
	var names []string
	for _, p := range s.Parameters {
		if p.Type == ParameterRange {
			names = append(names, p.Name)
		}
	}
	return names
}

func (s *SearchSpace) Parameter(name string) (Parameter, bool) {
	if s == nil {
		return Parameter{}, false
	}
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func (s *SearchSpace) Clone() *SearchSpace {
	if s == nil {
		return nil
	}
	params := make([]Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		p.Values = slices.Clone(p.Values)
		params[i] = p
	}
	return &SearchSpace{Parameters: params}
}
