package gosurface_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface"
	"github.com/sandrolain/gosurface/pkg/evaluator"
	"github.com/sandrolain/gosurface/pkg/types"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, gosurface.Version())
}

func TestNormalizeAndCompile(t *testing.T) {
	assert.Equal(t, "abs(x) + (sin(theta))^2", gosurface.Normalize("|x| + sin^2(θ)"))

	expr, err := gosurface.Compile("|x| + sin^2(θ)")
	require.NoError(t, err)
	assert.Equal(t, []string{"theta", "x"}, expr.Variables())

	v, err := gosurface.Eval(expr, evaluator.Scope{"x": -2, "theta": math.Pi / 2})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { gosurface.MustCompile("x +") })
	assert.NotPanics(t, func() { gosurface.MustCompile("x + 1") })
}

func TestGenerate(t *testing.T) {
	res := gosurface.Generate(context.Background(), types.SurfaceRequest{
		Expression: "x^2 + y^2",
		System:     types.Cartesian,
		Resolution: 2,
	})
	require.True(t, res.OK())
	assert.Equal(t, types.Vec3{0, 0, 0}, res.Mesh.Positions[4])

	res = gosurface.Generate(context.Background(), types.SurfaceRequest{Expression: "x+", System: types.Cartesian})
	require.NotNil(t, res.Err)
	assert.Nil(t, res.Mesh)
}
