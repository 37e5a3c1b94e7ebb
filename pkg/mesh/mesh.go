// Package mesh turns a sampled grid into an indexed triangle mesh with
// texture coordinates and smooth per-vertex normals.
package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sandrolain/gosurface/pkg/sampler"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Assemble builds the mesh of a grid of resolution N.
//
// Vertices are the grid points in row-major order, so vertex i*(N+1)+j has
// UV (i/N, j/N). Every cell (i, j) with i, j < N is split into two triangles
// (a, b, d) and (a, d, c) where a = i*(N+1)+j, b = a+1, c = a+(N+1) and
// d = c+1.
func Assemble(grid *sampler.Grid) *types.Mesh {
	n := grid.N
	stride := n + 1
	count := stride * stride

	m := &types.Mesh{
		Resolution: n,
		Positions:  make([]types.Vec3, count),
		UVs:        make([]types.Vec2, count),
		Indices:    make([]uint32, 0, 6*n*n),
	}
	copy(m.Positions, grid.Points)

	inv := 1 / float64(n)
	for i := 0; i < stride; i++ {
		for j := 0; j < stride; j++ {
			m.UVs[i*stride+j] = types.Vec2{float64(i) * inv, float64(j) * inv}
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := uint32(i*stride + j)
			b := a + 1
			c := a + uint32(stride)
			d := c + 1
			m.Indices = append(m.Indices, a, b, d, a, d, c)
		}
	}

	m.Normals = ComputeNormals(m.Positions, m.Indices)
	return m
}

// ComputeNormals returns area-weighted vertex normals. For every triangle
// (A, B, C) the face vector (C-B)×(A-B) is added to the three vertices, then
// every sum is normalized. Vertices whose sum is zero, such as the collapsed
// poles of a sphere, keep the zero vector.
func ComputeNormals(positions []types.Vec3, indices []uint32) []types.Vec3 {
	acc := make([]r3.Vec, len(positions))
	for k := 0; k+2 < len(indices); k += 3 {
		ia, ib, ic := indices[k], indices[k+1], indices[k+2]
		vA, vB, vC := vec(positions[ia]), vec(positions[ib]), vec(positions[ic])

		face := r3.Cross(r3.Sub(vC, vB), r3.Sub(vA, vB))
		acc[ia] = r3.Add(acc[ia], face)
		acc[ib] = r3.Add(acc[ib], face)
		acc[ic] = r3.Add(acc[ic], face)
	}

	normals := make([]types.Vec3, len(positions))
	for k, v := range acc {
		norm := r3.Norm(v)
		if norm == 0 {
			continue
		}
		normals[k] = fromVec(r3.Scale(1/norm, v))
	}
	return normals
}

// Bounds returns the axis-aligned bounding box of the mesh positions. An
// empty mesh has a zero box.
func Bounds(m *types.Mesh) r3.Box {
	if len(m.Positions) == 0 {
		return r3.Box{}
	}
	first := vec(m.Positions[0])
	box := r3.Box{Min: first, Max: first}
	for _, p := range m.Positions[1:] {
		v := vec(p)
		box.Min = r3.Vec{X: min(box.Min.X, v.X), Y: min(box.Min.Y, v.Y), Z: min(box.Min.Z, v.Z)}
		box.Max = r3.Vec{X: max(box.Max.X, v.X), Y: max(box.Max.Y, v.Y), Z: max(box.Max.Z, v.Z)}
	}
	return box
}

func vec(p types.Vec3) r3.Vec {
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func fromVec(v r3.Vec) types.Vec3 {
	return types.Vec3{v.X, v.Y, v.Z}
}
