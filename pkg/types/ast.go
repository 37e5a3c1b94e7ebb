package types

import (
	"math"
	"strconv"
	"strings"
)

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types of the surface expression grammar.
const (
	NodeConstant NodeType = "constant" // 1, 2.5, 1e-3
	NodeVariable NodeType = "variable" // x, theta, t
	NodeUnary    NodeType = "unary"    // -x, +x
	NodeBinary   NodeType = "binary"   // + - * / ^
	NodeCall     NodeType = "call"     // sin(x)
)

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Nodes are built once by the parser and never mutated afterwards, so a tree
// may be shared by any number of goroutines.
type ASTNode struct {
	Type     NodeType
	Position int

	// Value holds the literal of a NodeConstant.
	Value float64
	// Name holds the identifier of a NodeVariable or the function of a NodeCall.
	Name string
	// Op holds the operator of a NodeUnary or NodeBinary ('+', '-', '*', '/', '^').
	Op byte

	LHS  *ASTNode   // operand of unary ops, left side of binary ops
	RHS  *ASTNode   // right side of binary ops
	Args []*ASTNode // call arguments, in order
}

// NewConstant creates a constant node.
func NewConstant(value float64, position int) *ASTNode {
	return &ASTNode{Type: NodeConstant, Value: value, Position: position}
}

// NewVariable creates a free variable reference.
func NewVariable(name string, position int) *ASTNode {
	return &ASTNode{Type: NodeVariable, Name: name, Position: position}
}

// NewUnary creates a unary operator node.
func NewUnary(op byte, operand *ASTNode, position int) *ASTNode {
	return &ASTNode{Type: NodeUnary, Op: op, LHS: operand, Position: position}
}

// NewBinary creates a binary operator node.
func NewBinary(op byte, lhs, rhs *ASTNode, position int) *ASTNode {
	return &ASTNode{Type: NodeBinary, Op: op, LHS: lhs, RHS: rhs, Position: position}
}

// NewCall creates a function call node.
func NewCall(name string, args []*ASTNode, position int) *ASTNode {
	return &ASTNode{Type: NodeCall, Name: name, Args: args, Position: position}
}

// String renders the subtree in canonical, fully parenthesized form.
// Re-parsing the output yields a structurally equal tree.
func (n *ASTNode) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *ASTNode) write(sb *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Type {
	case NodeConstant:
		sb.WriteString(formatNumber(n.Value))
	case NodeVariable:
		sb.WriteString(n.Name)
	case NodeUnary:
		sb.WriteByte('(')
		sb.WriteByte(n.Op)
		n.LHS.write(sb)
		sb.WriteByte(')')
	case NodeBinary:
		sb.WriteByte('(')
		n.LHS.write(sb)
		sb.WriteByte(' ')
		sb.WriteByte(n.Op)
		sb.WriteByte(' ')
		n.RHS.write(sb)
		sb.WriteByte(')')
	case NodeCall:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			arg.write(sb)
		}
		sb.WriteByte(')')
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Equal reports whether two trees have the same shape and contents.
// Source positions are ignored.
func Equal(a, b *ASTNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Op != b.Op || a.Name != b.Name {
		return false
	}
	if a.Type == NodeConstant && a.Value != b.Value && !(math.IsNaN(a.Value) && math.IsNaN(b.Value)) {
		return false
	}
	if !Equal(a.LHS, b.LHS) || !Equal(a.RHS, b.RHS) || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

// Walk calls fn for every node of the tree in depth-first pre-order.
func Walk(n *ASTNode, fn func(*ASTNode)) {
	if n == nil {
		return
	}
	fn(n)
	Walk(n.LHS, fn)
	Walk(n.RHS, fn)
	for _, arg := range n.Args {
		Walk(arg, fn)
	}
}
