package types

import (
	"fmt"
	"strings"
)

// CoordinateSystem selects the free variables, their domains and the transform
// used to turn an expression into a surface.
type CoordinateSystem uint8

const (
	// Cartesian plots z = f(x, y).
	Cartesian CoordinateSystem = iota
	// Spherical plots r = f(theta, phi).
	Spherical
	// Cylindrical plots z = f(r, theta).
	Cylindrical
)

// CoordinateSystems lists every supported system in declaration order.
var CoordinateSystems = []CoordinateSystem{Cartesian, Spherical, Cylindrical}

// String returns the lower-case wire name of the system.
func (c CoordinateSystem) String() string {
	switch c {
	case Cartesian:
		return "cartesian"
	case Spherical:
		return "spherical"
	case Cylindrical:
		return "cylindrical"
	default:
		return fmt.Sprintf("CoordinateSystem(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the declared systems.
func (c CoordinateSystem) Valid() bool {
	return c <= Cylindrical
}

// ParseCoordinateSystem parses a wire name, ignoring case and surrounding
// whitespace.
func ParseCoordinateSystem(s string) (CoordinateSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cartesian":
		return Cartesian, nil
	case "spherical":
		return Spherical, nil
	case "cylindrical":
		return Cylindrical, nil
	default:
		return 0, NewError(ErrInvalidSystem, fmt.Sprintf("unknown coordinate system %q", s), -1)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CoordinateSystem) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, NewError(ErrInvalidSystem, fmt.Sprintf("invalid coordinate system %d", uint8(c)), -1)
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CoordinateSystem) UnmarshalText(text []byte) error {
	parsed, err := ParseCoordinateSystem(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DefaultResolution is the grid resolution used when a request leaves it unset.
const DefaultResolution = 100

// MaxExpressionLength is the longest accepted raw expression, in bytes.
// Normalization cost grows with the square of the bar nesting depth, so
// untrusted text is rejected before it is normalized.
const MaxExpressionLength = 2048

// CheckExpressionLength returns an ErrExpressionTooLong error when expression
// exceeds MaxExpressionLength.
func CheckExpressionLength(expression string) error {
	if len(expression) > MaxExpressionLength {
		return NewError(ErrExpressionTooLong,
			fmt.Sprintf("expression is %d bytes, limit is %d", len(expression), MaxExpressionLength), -1)
	}
	return nil
}

// SurfaceRequest is the input of the surface pipeline.
type SurfaceRequest struct {
	Expression string           `json:"expression" yaml:"expression"`
	System     CoordinateSystem `json:"system" yaml:"system"`
	Resolution int              `json:"resolution,omitempty" yaml:"resolution,omitempty"`
}

// WithDefaults returns a copy of the request with a zero resolution replaced
// by DefaultResolution.
func (r SurfaceRequest) WithDefaults() SurfaceRequest {
	if r.Resolution == 0 {
		r.Resolution = DefaultResolution
	}
	return r
}

// Validate checks the request shape. The expression itself is validated by
// the compiler.
func (r SurfaceRequest) Validate() error {
	if !r.System.Valid() {
		return NewError(ErrInvalidSystem, fmt.Sprintf("invalid coordinate system %d", uint8(r.System)), -1)
	}
	if r.Resolution < 1 {
		return NewError(ErrInvalidResolution, fmt.Sprintf("resolution must be >= 1, got %d", r.Resolution), -1)
	}
	return nil
}

// Vec3 is an (x, y, z) triple in render space, where y is the vertical axis.
type Vec3 [3]float64

// Vec2 is a (u, v) texture coordinate.
type Vec2 [2]float64

// Mesh is an indexed triangle mesh. Triangles are taken from Indices three at
// a time; Positions, UVs and Normals are parallel.
type Mesh struct {
	Resolution int      `json:"resolution"`
	Positions  []Vec3   `json:"positions"`
	UVs        []Vec2   `json:"uvs"`
	Indices    []uint32 `json:"indices"`
	Normals    []Vec3   `json:"normals"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}
