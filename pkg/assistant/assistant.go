// Package assistant turns free-text shape descriptions into surface requests.
//
// The pipeline never depends on how a suggestion was produced. An Assistant
// may be an offline Catalog, a remote service reached through Remote, or any
// other implementation; its output is fed back as an ordinary SurfaceRequest.
package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/sandrolain/gosurface/pkg/types"
)

// Suggestion is an expression and the coordinate system it is meant for.
type Suggestion struct {
	Expression string                 `json:"expression"`
	System     types.CoordinateSystem `json:"type"`
}

// Request returns the surface request for the suggestion at resolution n.
// A non-positive n leaves the pipeline default in place.
func (s Suggestion) Request(n int) types.SurfaceRequest {
	if n < 0 {
		n = 0
	}
	return types.SurfaceRequest{
		Expression: s.Expression,
		System:     s.System,
		Resolution: n,
	}
}

// Assistant suggests a surface for a description. A nil suggestion with a
// nil error means no suggestion could be made.
type Assistant interface {
	Suggest(ctx context.Context, prompt string) (*Suggestion, error)
}

// Func adapts a function to Assistant.
type Func func(ctx context.Context, prompt string) (*Suggestion, error)

// Suggest calls f.
func (f Func) Suggest(ctx context.Context, prompt string) (*Suggestion, error) {
	return f(ctx, prompt)
}

// ErrInvalidSuggestion is returned by Decode for malformed service output.
var ErrInvalidSuggestion = errors.New("invalid suggestion")

// Decode parses a suggestion from the JSON object
//
//	{"expression": "...", "type": "cartesian|spherical|cylindrical"}
//
// Both fields are required.
func Decode(data []byte) (*Suggestion, error) {
	var raw struct {
		Expression *string `json:"expression"`
		Type       *string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrInvalidSuggestion, err.Error())
	}
	if raw.Expression == nil || strings.TrimSpace(*raw.Expression) == "" {
		return nil, errors.Wrap(ErrInvalidSuggestion, "missing expression")
	}
	if raw.Type == nil {
		return nil, errors.Wrap(ErrInvalidSuggestion, "missing type")
	}
	system, err := types.ParseCoordinateSystem(*raw.Type)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSuggestion, err.Error())
	}
	return &Suggestion{Expression: *raw.Expression, System: system}, nil
}
