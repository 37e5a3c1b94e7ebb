package evaluator

import (
	"fmt"
	"math"

	"github.com/sandrolain/gosurface/pkg/types"
)

// Func is an expression compiled into nested closures. It produces the same
// results as Evaluator.Eval without re-dispatching on node types at every
// call.
type Func func(scope Scope) (float64, error)

// EvalFunc compiles expr into a Func. Calls that do not resolve against the
// evaluator's registry are reported here rather than at every evaluation.
func (e *Evaluator) EvalFunc(expr *types.Expression) (Func, error) {
	if expr == nil || expr.AST() == nil {
		return nil, fmt.Errorf("invalid expression")
	}
	return e.compileNode(expr.AST())
}

func (e *Evaluator) compileNode(node *types.ASTNode) (Func, error) {
	switch node.Type {
	case types.NodeConstant:
		v := node.Value
		return func(Scope) (float64, error) { return v, nil }, nil

	case types.NodeVariable:
		// Scope bindings shadow constants, so resolution stays per call.
		return func(scope Scope) (float64, error) {
			return e.lookup(node, scope)
		}, nil

	case types.NodeUnary:
		operand, err := e.compileNode(node.LHS)
		if err != nil {
			return nil, err
		}
		if node.Op == '+' {
			return operand, nil
		}
		if node.Op != '-' {
			return nil, fmt.Errorf("unsupported unary operator: %c", node.Op)
		}
		return func(scope Scope) (float64, error) {
			v, err := operand(scope)
			return -v, err
		}, nil

	case types.NodeBinary:
		left, err := e.compileNode(node.LHS)
		if err != nil {
			return nil, err
		}
		right, err := e.compileNode(node.RHS)
		if err != nil {
			return nil, err
		}
		if _, err := applyBinary(node.Op, 0, 0); err != nil {
			return nil, err
		}
		op := node.Op
		return func(scope Scope) (float64, error) {
			l, err := left(scope)
			if err != nil {
				return math.NaN(), err
			}
			r, err := right(scope)
			if err != nil {
				return math.NaN(), err
			}
			return applyBinary(op, l, r)
		}, nil

	case types.NodeCall:
		fn, ok := e.functions.Lookup(node.Name)
		if !ok {
			return nil, types.NewError(types.ErrUnknownFunction,
				fmt.Sprintf("Unknown function: %s", node.Name), node.Position)
		}
		if len(node.Args) != fn.Arity {
			return nil, types.NewError(types.ErrArgumentCountMismatch,
				fmt.Sprintf("Function %s expects %d argument(s), got %d", fn.Name, fn.Arity, len(node.Args)), node.Position)
		}
		arg, err := e.compileNode(node.Args[0])
		if err != nil {
			return nil, err
		}
		impl := fn.Impl
		return func(scope Scope) (float64, error) {
			v, err := arg(scope)
			if err != nil {
				return math.NaN(), err
			}
			return impl(v), nil
		}, nil

	default:
		return nil, fmt.Errorf("unsupported node type: %s", node.Type)
	}
}
