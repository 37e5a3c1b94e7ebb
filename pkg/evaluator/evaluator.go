// Package evaluator computes the value of a compiled surface expression for a
// given variable binding.
//
// The evaluator receives a parsed Abstract Syntax Tree (AST) from the parser
// and evaluates it against a Scope. It supports:
//   - IEEE-754 double arithmetic with no clamping or sanitizing: domain
//     violations yield NaN or ±Inf, never an error
//   - Built-in constants (pi, e) that scope bindings may shadow
//   - A closure-compiled form (EvalFunc) for hot loops such as grid sampling
//
// The only evaluation error is an unresolved name: a variable that is neither
// bound in the scope nor a constant.
//
// # Example
//
//	ev := evaluator.New()
//	z, err := ev.Eval(expr, evaluator.Scope{"x": 1, "y": 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// An Evaluator holds no mutable state after construction. A single instance,
// and every Func it returns, may be used from any number of goroutines.
package evaluator

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/sandrolain/gosurface/pkg/functions"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Evaluator evaluates surface expressions against variable bindings.
type Evaluator struct {
	opts      EvalOptions
	logger    *slog.Logger
	constants map[string]float64
	functions *functions.Registry
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Debug enables debug logging of unresolved variables.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// Constants are resolved when a variable is not bound in the scope.
	// Defaults to DefaultConstants.
	Constants map[string]float64
	// Functions resolves call nodes. Defaults to functions.Default().
	Functions *functions.Registry
}

// DefaultConstants returns the constants every expression may reference.
func DefaultConstants() map[string]float64 {
	return map[string]float64{
		"pi": math.Pi,
		"e":  math.E,
	}
}

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Constants == nil {
		options.Constants = DefaultConstants()
	}
	if options.Functions == nil {
		options.Functions = functions.Default()
	}

	// The caller keeps ownership of its map.
	constants := make(map[string]float64, len(options.Constants))
	for k, v := range options.Constants {
		constants[k] = v
	}

	return &Evaluator{
		opts:      options,
		logger:    options.Logger,
		constants: constants,
		functions: options.Functions,
	}
}

// Eval evaluates an expression against a scope by walking its tree.
//
// The returned error is a *types.Error with code types.ErrUndefinedVariable
// when the expression references a name that is neither in scope nor a
// constant. NaN and ±Inf results are returned as values, not errors.
func (e *Evaluator) Eval(expr *types.Expression, scope Scope) (float64, error) {
	if expr == nil || expr.AST() == nil {
		return math.NaN(), fmt.Errorf("invalid expression")
	}
	return e.evalNode(expr.AST(), scope)
}

// lookup resolves a variable from the scope, then from the constants.
func (e *Evaluator) lookup(node *types.ASTNode, scope Scope) (float64, error) {
	if v, ok := scope[node.Name]; ok {
		return v, nil
	}
	if v, ok := e.constants[node.Name]; ok {
		return v, nil
	}
	if e.opts.Debug {
		e.logger.Debug("undefined variable",
			"name", node.Name,
			"position", node.Position)
	}
	return math.NaN(), undefinedVariable(node)
}

func undefinedVariable(node *types.ASTNode) error {
	return types.NewError(types.ErrUndefinedVariable,
		fmt.Sprintf("Undefined variable: %s", node.Name), node.Position).WithToken(node.Name)
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithConstants replaces the built-in constants. Pass an empty map to disable
// them entirely.
func WithConstants(constants map[string]float64) EvalOption {
	return func(opts *EvalOptions) {
		opts.Constants = constants
	}
}

// WithFunctions resolves calls against reg instead of the default registry.
// It must match the registry the expression was compiled with.
func WithFunctions(reg *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = reg
	}
}
