package types

import "fmt"

// ErrorCode represents a GoSurface error code.
type ErrorCode string

// Error codes. S: syntax, T: function shape, U: unresolved names, R: request
// validation.
const (
	// S0xxx: lexer and parser errors
	ErrMalformedNumber       ErrorCode = "S0101"
	ErrUnknownCharacter      ErrorCode = "S0102"
	ErrSyntaxError           ErrorCode = "S0201"
	ErrUnbalancedParens      ErrorCode = "S0202"
	ErrEmptyExpression       ErrorCode = "S0203"
	ErrNestingTooDeep        ErrorCode = "S0204"
	ErrUnknownFunction       ErrorCode = "T0401"
	ErrArgumentCountMismatch ErrorCode = "T0410"

	// U0xxx: evaluation errors
	ErrUndefinedVariable ErrorCode = "U1001"

	// R0xxx: request errors
	ErrInvalidResolution ErrorCode = "R0001"
	ErrInvalidSystem     ErrorCode = "R0002"
	ErrCanceled          ErrorCode = "R0003"
	ErrExpressionTooLong ErrorCode = "R0004"
)

// Error represents a structured GoSurface error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new error. Use a negative position when the error is not
// tied to a location in the source text.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so callers can
// write errors.Is(err, types.NewError(types.ErrUndefinedVariable, "", -1)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// IsCompileError reports whether the code belongs to the compile stage.
func (c ErrorCode) IsCompileError() bool {
	return len(c) > 0 && (c[0] == 'S' || c[0] == 'T')
}
