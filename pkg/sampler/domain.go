package sampler

import (
	"math"

	"github.com/sandrolain/gosurface/pkg/types"
)

// Height limit applied to the dependent value of Cartesian and Cylindrical
// surfaces. Spherical radii are not clamped.
const (
	MinHeight = -20.0
	MaxHeight = 20.0
)

// TimeVariable is bound in every scope to the seconds since the Unix epoch,
// captured once per sampling pass.
const TimeVariable = "t"

// Axis is one free variable of a coordinate system and the closed interval it
// is sampled over.
type Axis struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// At returns the axis value for grid index k of n.
func (a Axis) At(k, n int) float64 {
	return a.Min + float64(k)*(a.Max-a.Min)/float64(n)
}

// Domain describes how a coordinate system is sampled: Outer varies with the
// row index i, Inner with the column index j.
type Domain struct {
	System   types.CoordinateSystem `json:"system"`
	Outer    Axis                   `json:"outer"`
	Inner    Axis                   `json:"inner"`
	Quantity string                 `json:"quantity"`
	Clamped  bool                   `json:"clamped"`

	transform func(outer, inner, value float64) types.Vec3
}

// Variables returns the names bound per grid point, including TimeVariable.
func (d Domain) Variables() []string {
	return []string{d.Outer.Name, d.Inner.Name, TimeVariable}
}

// Point converts a sampled value into render space, where y is up.
func (d Domain) Point(outer, inner, value float64) types.Vec3 {
	return d.transform(outer, inner, value)
}

var domains = [...]Domain{
	types.Cartesian: {
		System:   types.Cartesian,
		Outer:    Axis{Name: "x", Min: -10, Max: 10},
		Inner:    Axis{Name: "y", Min: -10, Max: 10},
		Quantity: "z",
		Clamped:  true,
		transform: func(x, y, z float64) types.Vec3 {
			return types.Vec3{x, z, y}
		},
	},
	types.Spherical: {
		System:   types.Spherical,
		Outer:    Axis{Name: "phi", Min: 0, Max: 2 * math.Pi},
		Inner:    Axis{Name: "theta", Min: 0, Max: math.Pi},
		Quantity: "r",
		transform: func(phi, theta, r float64) types.Vec3 {
			sinTheta, cosTheta := math.Sincos(theta)
			sinPhi, cosPhi := math.Sincos(phi)
			return types.Vec3{r * sinTheta * cosPhi, r * cosTheta, r * sinTheta * sinPhi}
		},
	},
	types.Cylindrical: {
		System:   types.Cylindrical,
		Outer:    Axis{Name: "r", Min: 0, Max: 10},
		Inner:    Axis{Name: "theta", Min: 0, Max: 2 * math.Pi},
		Quantity: "z",
		Clamped:  true,
		transform: func(r, theta, height float64) types.Vec3 {
			sinTheta, cosTheta := math.Sincos(theta)
			return types.Vec3{r * cosTheta, height, r * sinTheta}
		},
	},
}

// DomainOf returns the sampling domain of a coordinate system.
// It panics if system is not valid.
func DomainOf(system types.CoordinateSystem) Domain {
	return domains[system]
}

// Domains returns the domains of every coordinate system.
func Domains() []Domain {
	out := make([]Domain, len(domains))
	copy(out, domains[:])
	return out
}

// clamp limits v to [MinHeight, MaxHeight].
func clamp(v float64) float64 {
	if v > MaxHeight {
		return MaxHeight
	}
	if v < MinHeight {
		return MinHeight
	}
	return v
}
