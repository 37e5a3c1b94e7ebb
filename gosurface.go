// Package gosurface turns mathematical expressions into 3D surface meshes.
//
// An expression such as "sin(sqrt(x^2 + y^2))" is normalized, compiled to an
// immutable syntax tree, sampled over the parameter grid of a coordinate
// system and assembled into an indexed triangle mesh with normals.
//
// # Quick Start
//
//	// One-shot generation
//	res := gosurface.Generate(ctx, types.SurfaceRequest{
//	    Expression: "sin(sqrt(x^2 + y^2)) + 0.5 * cos(y)",
//	    System:     types.Cartesian,
//	})
//	if res.Err != nil {
//	    log.Fatal(res.Err)
//	}
//
//	// Compile once, evaluate many times
//	expr := gosurface.MustCompile("|x| + sin^2(θ)")
//	v, _ := gosurface.Eval(expr, evaluator.Scope{"x": -1, "theta": 0})
//
// # Coordinate systems
//
//   - Cartesian: z = f(x, y) with x, y in [-10, 10]
//   - Spherical: r = f(theta, phi) with theta in [0, π], phi in [0, 2π]
//   - Cylindrical: z = f(r, theta) with r in [0, 10], theta in [0, 2π]
//
// Every system also binds t, the current time in seconds.
//
// # More Information
//
// For detailed documentation, see:
//   - Preprocessor: github.com/sandrolain/gosurface/pkg/preprocess
//   - Parser: github.com/sandrolain/gosurface/pkg/parser
//   - Evaluator: github.com/sandrolain/gosurface/pkg/evaluator
//   - Sampler: github.com/sandrolain/gosurface/pkg/sampler
//   - Mesh: github.com/sandrolain/gosurface/pkg/mesh
//   - Pipeline: github.com/sandrolain/gosurface/pkg/pipeline
package gosurface

import (
	"context"
	"fmt"

	"github.com/sandrolain/gosurface/pkg/evaluator"
	"github.com/sandrolain/gosurface/pkg/parser"
	"github.com/sandrolain/gosurface/pkg/pipeline"
	"github.com/sandrolain/gosurface/pkg/preprocess"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Version returns the current version of GoSurface.
func Version() string {
	return "v0.1.0-dev"
}

// Normalize rewrites user syntax (θ, |x|, sin^2(x)) into the canonical
// grammar. It never fails.
func Normalize(expression string) string {
	return preprocess.Normalize(expression)
}

// Compile normalizes and compiles an expression.
//
// The compiled expression is immutable and safe for concurrent use.
func Compile(expression string, opts ...parser.CompileOption) (*types.Expression, error) {
	if err := types.CheckExpressionLength(expression); err != nil {
		return nil, err
	}
	return parser.Compile(Normalize(expression), opts...)
}

// MustCompile is like Compile but panics if the expression cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(expression string) *types.Expression {
	expr, err := Compile(expression)
	if err != nil {
		panic(fmt.Sprintf("gosurface: Compile(%q): %v", expression, err))
	}
	return expr
}

// Eval evaluates a compiled expression once. For repeated evaluation create
// an evaluator.Evaluator and use EvalFunc.
func Eval(expr *types.Expression, scope evaluator.Scope, opts ...evaluator.EvalOption) (float64, error) {
	return evaluator.New(opts...).Eval(expr, scope)
}

// Generate runs a request through a pipeline built with opts.
//
// For repeated requests, create a pipeline.Pipeline once and reuse it.
func Generate(ctx context.Context, req types.SurfaceRequest, opts ...pipeline.Option) pipeline.Result {
	return pipeline.New(opts...).Generate(ctx, req)
}
