package mesh_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sandrolain/gosurface/pkg/mesh"
	"github.com/sandrolain/gosurface/pkg/parser"
	"github.com/sandrolain/gosurface/pkg/sampler"
	"github.com/sandrolain/gosurface/pkg/types"
)

func grid(t *testing.T, expr string, system types.CoordinateSystem, n int) *sampler.Grid {
	t.Helper()
	s := sampler.New(sampler.WithClock(func() time.Time { return time.Unix(0, 0) }))
	g, err := s.Sample(context.Background(), parser.MustCompile(expr), system, n)
	require.NoError(t, err)
	return g
}

func TestAssembleShape(t *testing.T) {
	for _, system := range types.CoordinateSystems {
		for _, n := range []int{1, 2, 7} {
			m := mesh.Assemble(grid(t, "sin(x) + r + theta + phi", system, n))

			vertices := (n + 1) * (n + 1)
			assert.Len(t, m.Positions, vertices)
			assert.Len(t, m.UVs, vertices)
			assert.Len(t, m.Normals, vertices)
			assert.Len(t, m.Indices, 6*n*n)
			assert.Equal(t, n, m.Resolution)
			for _, idx := range m.Indices {
				assert.Less(t, int(idx), vertices)
			}
		}
	}
}

func TestAssembleWinding(t *testing.T) {
	m := mesh.Assemble(grid(t, "0", types.Cartesian, 2))

	assert.Equal(t, []uint32{0, 1, 4, 0, 4, 3}, m.Indices[:6])
	// Last cell: a = 1*3+1 = 4.
	assert.Equal(t, []uint32{4, 5, 8, 4, 8, 7}, m.Indices[18:])
}

func TestAssembleUVs(t *testing.T) {
	m := mesh.Assemble(grid(t, "x", types.Cartesian, 4))

	assert.Equal(t, types.Vec2{0, 0}, m.UVs[0])
	assert.Equal(t, types.Vec2{0, 0.25}, m.UVs[1])
	assert.Equal(t, types.Vec2{0.25, 0}, m.UVs[5])
	assert.Equal(t, types.Vec2{1, 1}, m.UVs[24])
}

func TestAssembleFlatNormals(t *testing.T) {
	m := mesh.Assemble(grid(t, "0", types.Cartesian, 3))

	for k, n := range m.Normals {
		assert.InDelta(t, 0.0, n[0], 1e-12, "normal %d", k)
		assert.InDelta(t, 1.0, n[1], 1e-12, "normal %d", k)
		assert.InDelta(t, 0.0, n[2], 1e-12, "normal %d", k)
	}
}

func TestAssembleUnitNormals(t *testing.T) {
	m := mesh.Assemble(grid(t, "sin(sqrt(x^2 + y^2)) + 0.5 * cos(y)", types.Cartesian, 20))

	for k, n := range m.Normals {
		length := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		assert.InDelta(t, 1.0, length, 1e-9, "normal %d", k)
	}
}

func TestAssembleDegenerate(t *testing.T) {
	// A zero radius collapses every vertex onto the origin.
	m := mesh.Assemble(grid(t, "0", types.Spherical, 4))

	for _, n := range m.Normals {
		assert.Equal(t, types.Vec3{}, n)
	}
}

func TestComputeNormals(t *testing.T) {
	positions := []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	normals := mesh.ComputeNormals(positions, []uint32{0, 1, 2})
	for _, n := range normals {
		assert.InDelta(t, 0.0, n[0], 1e-12)
		assert.InDelta(t, 0.0, n[1], 1e-12)
		assert.InDelta(t, 1.0, n[2], 1e-12)
	}
}

func TestBounds(t *testing.T) {
	m := mesh.Assemble(grid(t, "0", types.Cartesian, 2))

	box := mesh.Bounds(m)
	assert.Equal(t, r3.Vec{X: -10, Y: 0, Z: -10}, box.Min)
	assert.Equal(t, r3.Vec{X: 10, Y: 0, Z: 10}, box.Max)

	assert.Equal(t, r3.Box{}, mesh.Bounds(&types.Mesh{}))
}

func TestWriteOBJ(t *testing.T) {
	m := mesh.Assemble(grid(t, "0", types.Cartesian, 1))

	var buf bytes.Buffer
	require.NoError(t, mesh.WriteOBJ(&buf, m))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	counts := map[string]int{}
	for _, line := range lines {
		counts[strings.Fields(line)[0]]++
	}
	assert.Equal(t, map[string]int{"v": 4, "vt": 4, "vn": 4, "f": 2}, counts)
	assert.Equal(t, "v -10 0 -10", lines[0])
	assert.Equal(t, "vt 0 1", lines[5])
	assert.Equal(t, "f 1/1/1 2/2/2 4/4/4", lines[12])
	assert.Equal(t, "f 1/1/1 4/4/4 3/3/3", lines[13])
}

func TestSummarize(t *testing.T) {
	m := mesh.Assemble(grid(t, "x", types.Cartesian, 3))
	assert.Equal(t, mesh.Summary{Vertices: 16, Triangles: 18}, mesh.Summarize(m))
}

func BenchmarkAssemble(b *testing.B) {
	g, err := sampler.New().Sample(context.Background(), parser.MustCompile("sin(x) * cos(y)"), types.Cartesian, types.DefaultResolution)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mesh.Assemble(g)
	}
}
