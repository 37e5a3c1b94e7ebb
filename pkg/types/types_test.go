package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/types"
)

func TestParseCoordinateSystem(t *testing.T) {
	tests := []struct {
		in   string
		want types.CoordinateSystem
	}{
		{"cartesian", types.Cartesian},
		{" Spherical ", types.Spherical},
		{"CYLINDRICAL", types.Cylindrical},
	}
	for _, tt := range tests {
		got, err := types.ParseCoordinateSystem(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := types.ParseCoordinateSystem("polar")
	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, types.ErrInvalidSystem, terr.Code)
}

func TestCoordinateSystemJSON(t *testing.T) {
	data, err := json.Marshal(types.SurfaceRequest{Expression: "r", System: types.Cylindrical})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expression":"r","system":"cylindrical"}`, string(data))

	var req types.SurfaceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"expression":"5","system":"spherical","resolution":8}`), &req))
	assert.Equal(t, types.Spherical, req.System)
	assert.Equal(t, 8, req.Resolution)

	assert.Error(t, json.Unmarshal([]byte(`{"system":"polar"}`), &req))
	_, err = json.Marshal(types.SurfaceRequest{System: types.CoordinateSystem(9)})
	assert.Error(t, err)
	assert.Equal(t, "CoordinateSystem(9)", types.CoordinateSystem(9).String())
}

func TestSurfaceRequestValidate(t *testing.T) {
	req := types.SurfaceRequest{Expression: "x"}.WithDefaults()
	assert.Equal(t, types.DefaultResolution, req.Resolution)
	assert.NoError(t, req.Validate())

	err := types.SurfaceRequest{Resolution: -1}.Validate()
	assert.True(t, errors.Is(err, types.NewError(types.ErrInvalidResolution, "", -1)))

	err = types.SurfaceRequest{System: types.CoordinateSystem(3), Resolution: 1}.Validate()
	assert.True(t, errors.Is(err, types.NewError(types.ErrInvalidSystem, "", -1)))
}

func TestErrorFormatting(t *testing.T) {
	err := types.NewError(types.ErrSyntaxError, "Unexpected token", 4)
	assert.Equal(t, "S0201 at position 4: Unexpected token", err.Error())

	cause := errors.New("boom")
	err = types.NewError(types.ErrCanceled, "request canceled", -1).WithCause(cause)
	assert.Equal(t, "R0003: request canceled", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.True(t, types.ErrUnknownFunction.IsCompileError())
	assert.True(t, types.ErrMalformedNumber.IsCompileError())
	assert.False(t, types.ErrUndefinedVariable.IsCompileError())
	assert.False(t, types.ErrCanceled.IsCompileError())
}

func TestASTStringAndEqual(t *testing.T) {
	tree := types.NewBinary('+',
		types.NewCall("sin", []*types.ASTNode{types.NewVariable("x", 4)}, 0),
		types.NewUnary('-', types.NewConstant(0.5, 10), 9), 7)
	assert.Equal(t, "(sin(x) + (-0.5))", tree.String())

	moved := types.NewBinary('+',
		types.NewCall("sin", []*types.ASTNode{types.NewVariable("x", 0)}, 0),
		types.NewUnary('-', types.NewConstant(0.5, 0), 0), 0)
	assert.True(t, types.Equal(tree, moved))
	assert.False(t, types.Equal(tree, types.NewVariable("x", 0)))

	var names []string
	types.Walk(tree, func(n *types.ASTNode) {
		if n.Type == types.NodeVariable || n.Type == types.NodeCall {
			names = append(names, n.Name)
		}
	})
	assert.Equal(t, []string{"sin", "x"}, names)

	expr := types.NewExpression(tree, "sin(x) + -0.5")
	assert.Equal(t, []string{"x"}, expr.Variables())
	assert.Equal(t, "sin(x) + -0.5", expr.Source())
}

func TestMeshCounts(t *testing.T) {
	m := &types.Mesh{Positions: make([]types.Vec3, 9), Indices: make([]uint32, 24)}
	assert.Equal(t, 9, m.VertexCount())
	assert.Equal(t, 8, m.TriangleCount())
}
