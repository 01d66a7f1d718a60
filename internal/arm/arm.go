package arm

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/copystructure"
)

// Arm is a named point in a parameter space.
type Arm struct {
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
}

func New(name string, parameters map[string]any) *Arm {
	return &Arm{Name: name, Parameters: parameters}
}

// Signature is a deterministic identity derived from the parameter values only.
// JSON encoding sorts map keys, so equal parameter sets always hash the same.
// Numbers hash by value: 1 and 1.0 share a signature, which keeps signatures
// stable when YAML integers come back from JSON storage as float64.
func (a *Arm) Signature() string {
	data, err := json.Marshal(a.Parameters)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", a.Parameters))
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (a *Arm) HasName() bool {
	return a.Name != ""
}

// NameOrShortSignature is the display label: the name, or the last four
// characters of the signature for unnamed arms.
func (a *Arm) NameOrShortSignature() string {
	if a.HasName() {
		return a.Name
	}
	sig := a.Signature()
	return sig[len(sig)-4:]
}

// Clone deep-copies the parameters, including nested lists and maps.
func (a *Arm) Clone() *Arm {
	var params map[string]any
	if a.Parameters != nil {
		params = copystructure.Must(copystructure.Copy(a.Parameters)).(map[string]any)
	}
	return &Arm{Name: a.Name, Parameters: params}
}

func (a *Arm) String() string {
	return fmt.Sprintf("Arm(%s, %v)", a.NameOrShortSignature(), a.Parameters)
}
