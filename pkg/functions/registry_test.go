package functions_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/functions"
)

func TestDefaultRegistry(t *testing.T) {
	reg := functions.Default()
	assert.Equal(t, []string{"abs", "cos", "cosh", "cot", "csc", "sec", "sin", "sinh", "sqrt", "tan", "tanh"}, reg.Names())

	fn, ok := reg.Lookup("sin")
	require.True(t, ok)
	assert.Equal(t, 1, fn.Arity)
	assert.InDelta(t, 1, fn.Call(math.Pi/2), 1e-12)

	csc, ok := reg.Lookup("csc")
	require.True(t, ok)
	assert.True(t, math.IsInf(csc.Call(0), 1))

	_, ok = reg.Lookup("sine")
	assert.False(t, ok)
	assert.Equal(t, "sin", reg.Suggest("sine"))
}

func TestNewRegistryArity(t *testing.T) {
	double := func(x float64) float64 { return 2 * x }

	reg := functions.NewRegistry(functions.Func{Name: "double", Impl: double})
	fn, ok := reg.Lookup("double")
	require.True(t, ok)
	assert.Equal(t, 1, fn.Arity)

	tests := []struct {
		name string
		def  functions.Func
	}{
		{"binary", functions.Func{Name: "hypot", Arity: 2, Impl: double}},
		{"negative arity", functions.Func{Name: "neg", Arity: -1, Impl: double}},
		{"missing impl", functions.Func{Name: "nop"}},
		{"missing name", functions.Func{Impl: double}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { functions.NewRegistry(tt.def) })
		})
	}
}
