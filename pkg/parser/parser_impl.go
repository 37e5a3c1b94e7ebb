package parser

import (
	"fmt"
	"strconv"

	"github.com/sandrolain/gosurface/pkg/functions"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Parser implements a recursive descent parser for surface expressions.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence and associativity.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	depth   int
	opts    CompileOptions
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: 256,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Functions == nil {
		options.Functions = functions.Default()
	}

	p := &Parser{
		lexer: NewLexer(input),
		opts:  options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire expression and returns the compiled Expression.
func (p *Parser) Parse() (*types.Expression, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrEmptyExpression, "Empty expression")
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	switch p.current.Type {
	case TokenEOF:
	case TokenParenClose:
		return nil, p.error(types.ErrUnbalancedParens, "Unmatched closing parenthesis")
	case TokenName, TokenNumber, TokenParenOpen:
		return nil, p.error(types.ErrSyntaxError,
			fmt.Sprintf("Unexpected %s %q: implicit multiplication is not supported, use '*'", p.current.Type, p.current.Value))
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}

	return types.NewExpression(node, p.lexer.input), nil
}

// Binding powers. Higher values bind more tightly.
const (
	bpAdditive       = 50 // + -
	bpMultiplicative = 60 // * /
	bpUnary          = 70 // prefix - +
	bpPower          = 80 // ^
)

// getPrecedence returns the left binding power of an infix token.
func (p *Parser) getPrecedence(tt TokenType) int {
	switch tt {
	case TokenPlus, TokenMinus:
		return bpAdditive
	case TokenMult, TokenDiv:
		return bpMultiplicative
	case TokenPow:
		return bpPower
	default:
		return 0
	}
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		code := types.ErrSyntaxError
		if tt == TokenParenClose {
			code = types.ErrUnbalancedParens
		}
		return p.error(code, fmt.Sprintf("Expected %s but got %s", tt.String(), p.describeCurrent()))
	}
	p.advance()
	return nil
}

// describeCurrent renders the current token for error messages.
func (p *Parser) describeCurrent() string {
	if p.current.Type == TokenEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", p.current.Value)
}

// error creates a parser error. A pending lexer error takes precedence, since
// it explains why the parser saw an unexpected token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	if err := p.lexer.Error(); err != nil {
		return err
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*types.ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrNestingTooDeep,
			fmt.Sprintf("Expression nesting exceeds %d levels", p.opts.MaxDepth))
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseBinaryOp(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
func (p *Parser) parsePrefix() (*types.ASTNode, error) {
	token := p.current

	switch token.Type {
	case TokenNumber:
		return p.parseNumber()
	case TokenName:
		return p.parseName()
	case TokenMinus, TokenPlus:
		return p.parseUnary()
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenEOF:
		return nil, p.error(types.ErrSyntaxError, "Unexpected end of expression")
	case TokenError:
		return nil, p.lexer.Error()
	case TokenParenClose:
		return nil, p.error(types.ErrUnbalancedParens, "Unexpected closing parenthesis")
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", token.Value))
	}
}

// parseNumber parses a number literal.
func (p *Parser) parseNumber() (*types.ASTNode, error) {
	val, err := strconv.ParseFloat(p.current.Value, 64)
	if err != nil {
		return nil, p.error(types.ErrMalformedNumber, fmt.Sprintf("Invalid number: %s", p.current.Value))
	}

	node := types.NewConstant(val, p.current.Position)
	p.advance()
	return node, nil
}

// parseName parses a free variable or, when followed by '(', a function call.
func (p *Parser) parseName() (*types.ASTNode, error) {
	name := p.current
	p.advance()

	if p.current.Type == TokenParenOpen {
		return p.parseFunctionCall(name)
	}

	return types.NewVariable(name.Value, name.Position), nil
}

// parseUnary parses a prefix sign. Exponentiation binds tighter than the
// sign, so -2^2 is -(2^2).
func (p *Parser) parseUnary() (*types.ASTNode, error) {
	op := p.current
	p.advance()

	operand, err := p.parseExpression(bpUnary)
	if err != nil {
		return nil, err
	}

	return types.NewUnary(operatorByte(op.Type), operand, op.Position), nil
}

// parseGrouping parses a parenthesized expression. Parentheses only group;
// they produce no node of their own.
func (p *Parser) parseGrouping() (*types.ASTNode, error) {
	p.advance() // Skip '('

	if p.current.Type == TokenParenClose {
		return nil, p.error(types.ErrSyntaxError, "Empty parentheses")
	}

	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	return expr, nil
}

// parseBinaryOp parses an infix arithmetic operator.
func (p *Parser) parseBinaryOp(left *types.ASTNode) (*types.ASTNode, error) {
	op := p.current
	prec := p.getPrecedence(op.Type)
	p.advance()

	// '^' is right-associative: the right side may contain another '^'.
	rbp := prec
	if op.Type == TokenPow {
		rbp = prec - 1
	}

	right, err := p.parseExpression(rbp)
	if err != nil {
		return nil, err
	}

	return types.NewBinary(operatorByte(op.Type), left, right, op.Position), nil
}

// parseFunctionCall parses the argument list of a call and validates the
// callee against the function registry.
func (p *Parser) parseFunctionCall(name Token) (*types.ASTNode, error) {
	p.advance() // Skip '('

	args := []*types.ASTNode{}
	if p.current.Type != TokenParenClose {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.current.Type != TokenComma {
				break
			}
			p.advance() // Skip ','
		}
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	fn, ok := p.opts.Functions.Lookup(name.Value)
	if !ok {
		msg := fmt.Sprintf("Unknown function: %s", name.Value)
		if s := p.opts.Functions.Suggest(name.Value); s != "" {
			msg += fmt.Sprintf(" (did you mean %s?)", s)
		}
		return nil, types.NewError(types.ErrUnknownFunction, msg, name.Position).WithToken(name.Value)
	}
	if len(args) != fn.Arity {
		return nil, types.NewError(types.ErrArgumentCountMismatch,
			fmt.Sprintf("Function %s expects %d argument(s), got %d", fn.Name, fn.Arity, len(args)),
			name.Position).WithToken(name.Value)
	}

	return types.NewCall(fn.Name, args, name.Position), nil
}
