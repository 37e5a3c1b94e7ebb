// Package types defines the core data model shared by the GoSurface packages.
//
// This package contains type definitions for:
//   - Expression: compiled surface expressions
//   - ASTNode: Abstract Syntax Tree nodes
//   - CoordinateSystem: the three supported surface conventions
//   - SurfaceRequest and Mesh: the pipeline input and output
//   - Error types: structured errors with codes
package types

import "sort"

// Expression represents a compiled surface expression.
//
// An Expression can be evaluated any number of times with different scopes.
// It holds no mutable state and is safe for concurrent use by multiple
// goroutines.
type Expression struct {
	ast    *ASTNode
	source string
	vars   []string
}

// NewExpression creates a new Expression from an AST.
func NewExpression(ast *ASTNode, source string) *Expression {
	seen := make(map[string]struct{})
	Walk(ast, func(n *ASTNode) {
		if n.Type == NodeVariable {
			seen[n.Name] = struct{}{}
		}
	})
	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	return &Expression{
		ast:    ast,
		source: source,
		vars:   vars,
	}
}

// AST returns the Abstract Syntax Tree of the expression.
func (e *Expression) AST() *ASTNode {
	return e.ast
}

// Source returns the canonical source the expression was compiled from.
func (e *Expression) Source() string {
	return e.source
}

// Variables returns the sorted names of the free variables referenced by the
// expression. The returned slice must not be modified.
func (e *Expression) Variables() []string {
	return e.vars
}

// String returns the canonical, fully parenthesized form of the expression.
func (e *Expression) String() string {
	return e.ast.String()
}
