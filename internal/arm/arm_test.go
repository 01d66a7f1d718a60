package arm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalnine/trialbook/internal/arm"
)

func TestSignatureDependsOnParametersOnly(t *testing.T) {
	a := arm.New("0_0", map[string]any{"x": 1.0, "y": "foo"})
	b := arm.New("other", map[string]any{"y": "foo", "x": 1.0})
	c := arm.New("0_0", map[string]any{"x": 2.0, "y": "foo"})

	assert.Equal(t, a.Signature(), b.Signature())
	assert.NotEqual(t, a.Signature(), c.Signature())
	assert.Len(t, a.Signature(), 32)
}

func TestNameOrShortSignature(t *testing.T) {
	named := arm.New("1_0", map[string]any{"x": 1})
	assert.Equal(t, "1_0", named.NameOrShortSignature())

	unnamed := arm.New("", map[string]any{"x": 1})
	sig := unnamed.Signature()
	assert.Equal(t, sig[len(sig)-4:], unnamed.NameOrShortSignature())
}

func TestClone(t *testing.T) {
	a := arm.New("0_0", map[string]any{"x": 1.0})
	c := a.Clone()
	assert.Equal(t, a.Signature(), c.Signature())

	c.Parameters["x"] = 5.0
	assert.Equal(t, 1.0, a.Parameters["x"])
}

func TestCloneIsDeep(t *testing.T) {
	a := arm.New("0_0", map[string]any{
		"layers": []any{64, 32},
		"opt":    map[string]any{"name": "adam", "betas": []any{0.9, 0.999}},
	})
	c := a.Clone()
	assert.Equal(t, a.Parameters, c.Parameters)

	c.Parameters["layers"].([]any)[0] = 128
	c.Parameters["opt"].(map[string]any)["name"] = "sgd"
	c.Parameters["opt"].(map[string]any)["betas"].([]any)[1] = 0.5

	assert.Equal(t, []any{64, 32}, a.Parameters["layers"])
	assert.Equal(t, "adam", a.Parameters["opt"].(map[string]any)["name"])
	assert.Equal(t, []any{0.9, 0.999}, a.Parameters["opt"].(map[string]any)["betas"])
	assert.Equal(t, a.Signature(), arm.New("", map[string]any{
		"layers": []any{64, 32},
		"opt":    map[string]any{"name": "adam", "betas": []any{0.9, 0.999}},
	}).Signature())
}

func TestCloneNilParameters(t *testing.T) {
	assert.Nil(t, arm.New("a", nil).Clone().Parameters)
}

func TestSignatureIgnoresNumericType(t *testing.T) {
	integer := arm.New("", map[string]any{"x": 1})
	float := arm.New("", map[string]any{"x": 1.0})
	assert.Equal(t, integer.Signature(), float.Signature())
	assert.NotEqual(t, integer.Signature(), arm.New("", map[string]any{"x": "1"}).Signature())
}
