package evaluator

import (
	"fmt"
	"math"

	"github.com/sandrolain/gosurface/pkg/types"
)

// evalNode evaluates an AST node in the given scope.
func (e *Evaluator) evalNode(node *types.ASTNode, scope Scope) (float64, error) {
	if node == nil {
		return math.NaN(), fmt.Errorf("nil node")
	}

	// Dispatch based on node type
	switch node.Type {
	case types.NodeConstant:
		return node.Value, nil
	case types.NodeVariable:
		return e.lookup(node, scope)
	case types.NodeUnary:
		return e.evalUnary(node, scope)
	case types.NodeBinary:
		return e.evalBinary(node, scope)
	case types.NodeCall:
		return e.evalCall(node, scope)
	default:
		return math.NaN(), fmt.Errorf("unsupported node type: %s", node.Type)
	}
}

// evalUnary evaluates a prefix sign.
func (e *Evaluator) evalUnary(node *types.ASTNode, scope Scope) (float64, error) {
	v, err := e.evalNode(node.LHS, scope)
	if err != nil {
		return math.NaN(), err
	}
	return applyUnary(node.Op, v)
}

// evalBinary evaluates an arithmetic operator. Both operands are evaluated
// left to right; the first error wins.
func (e *Evaluator) evalBinary(node *types.ASTNode, scope Scope) (float64, error) {
	left, err := e.evalNode(node.LHS, scope)
	if err != nil {
		return math.NaN(), err
	}
	right, err := e.evalNode(node.RHS, scope)
	if err != nil {
		return math.NaN(), err
	}
	return applyBinary(node.Op, left, right)
}

// evalCall evaluates a call to a registered function.
func (e *Evaluator) evalCall(node *types.ASTNode, scope Scope) (float64, error) {
	fn, ok := e.functions.Lookup(node.Name)
	if !ok {
		return math.NaN(), types.NewError(types.ErrUnknownFunction,
			fmt.Sprintf("Unknown function: %s", node.Name), node.Position)
	}
	if len(node.Args) != fn.Arity {
		return math.NaN(), types.NewError(types.ErrArgumentCountMismatch,
			fmt.Sprintf("Function %s expects %d argument(s), got %d", fn.Name, fn.Arity, len(node.Args)), node.Position)
	}
	arg, err := e.evalNode(node.Args[0], scope)
	if err != nil {
		return math.NaN(), err
	}
	return fn.Call(arg), nil
}

func applyUnary(op byte, v float64) (float64, error) {
	switch op {
	case '-':
		return -v, nil
	case '+':
		return v, nil
	default:
		return math.NaN(), fmt.Errorf("unsupported unary operator: %c", op)
	}
}

func applyBinary(op byte, left, right float64) (float64, error) {
	switch op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		return left / right, nil
	case '^':
		return math.Pow(left, right), nil
	default:
		return math.NaN(), fmt.Errorf("unsupported binary operator: %c", op)
	}
}
