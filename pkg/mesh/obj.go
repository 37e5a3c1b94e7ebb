package mesh

import (
	"bufio"
	"io"
	"strconv"

	"github.com/sandrolain/gosurface/pkg/types"
)

// WriteOBJ writes m as a Wavefront OBJ document. Every face references the
// position, texture coordinate and normal of the same 1-based index.
func WriteOBJ(w io.Writer, m *types.Mesh) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)

	writeVec := func(prefix string, values ...float64) {
		buf = append(buf[:0], prefix...)
		for _, v := range values {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	for _, p := range m.Positions {
		writeVec("v", p[0], p[1], p[2])
	}
	for _, uv := range m.UVs {
		writeVec("vt", uv[0], uv[1])
	}
	for _, n := range m.Normals {
		writeVec("vn", n[0], n[1], n[2])
	}

	for k := 0; k+2 < len(m.Indices); k += 3 {
		buf = append(buf[:0], 'f')
		for _, idx := range m.Indices[k : k+3] {
			ref := strconv.FormatUint(uint64(idx)+1, 10)
			buf = append(buf, ' ')
			buf = append(buf, ref...)
			buf = append(buf, '/')
			buf = append(buf, ref...)
			buf = append(buf, '/')
			buf = append(buf, ref...)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	return bw.Flush()
}

// Summary describes a mesh for logs and API listings.
type Summary struct {
	Vertices  int `json:"vertices"`
	Triangles int `json:"triangles"`
}

// Summarize returns the vertex and triangle counts of m.
func Summarize(m *types.Mesh) Summary {
	return Summary{Vertices: m.VertexCount(), Triangles: m.TriangleCount()}
}
