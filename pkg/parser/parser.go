// Package parser compiles canonical surface expressions into immutable ASTs.
//
// The parser uses a hand-written recursive descent approach over a small,
// closed grammar:
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/') unary)*
//	unary   := ('-' | '+') unary | power
//	power   := primary ('^' unary)?          // right-associative
//	primary := number | name | name '(' args ')' | '(' expr ')'
//
// Implicit multiplication is not part of the grammar: "2x" is a syntax error
// and must be written "2*x".
//
// # Architecture
//
// The parser consists of two components:
//   - Lexer: Tokenizes the input expression into a stream of tokens
//   - Parser: Builds an Abstract Syntax Tree (AST) from tokens and validates
//     calls against a function registry
//
// # Example
//
//	expr, err := parser.Compile("sqrt(x^2 + y^2)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := expr.AST()
package parser

import (
	"github.com/sandrolain/gosurface/pkg/functions"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Parse parses a canonical expression with default options.
//
// If parsing fails, the returned error is a *types.Error carrying a code and
// the byte offset of the offending token.
func Parse(query string) (*types.Expression, error) {
	p := NewParser(query)
	return p.Parse()
}

// Compile parses a canonical expression, applying the given options.
func Compile(query string, opts ...CompileOption) (*types.Expression, error) {
	p := NewParser(query, opts...)
	return p.Parse()
}

// MustCompile is like Compile but panics if the expression cannot be compiled.
func MustCompile(query string, opts ...CompileOption) *types.Expression {
	expr, err := Compile(query, opts...)
	if err != nil {
		panic("parser: Compile(" + query + "): " + err.Error())
	}
	return expr
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits expression nesting to prevent stack exhaustion on
	// hostile input.
	MaxDepth int
	// Functions is the registry calls are validated against.
	Functions *functions.Registry
}

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}

// WithFunctions validates calls against reg instead of the default registry.
func WithFunctions(reg *functions.Registry) CompileOption {
	return func(opts *CompileOptions) {
		opts.Functions = reg
	}
}
