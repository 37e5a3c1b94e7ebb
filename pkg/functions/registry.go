// Package functions holds the closed set of named functions a surface
// expression may call.
//
// The set is fixed: sin, cos, tan, csc, sec, cot, sinh, cosh, tanh, sqrt and
// abs, each taking exactly one argument. The parser validates calls against a
// Registry and the evaluator dispatches through the resolved Func, so both
// stages agree on names and arity.
//
// # Example
//
//	fn, ok := functions.Default().Lookup("sin")
//	if ok {
//	    y := fn.Call(math.Pi / 2) // 1
//	}
package functions

import (
	"fmt"
	"math"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Unary is the implementation of a one-argument function. Implementations
// follow IEEE-754 semantics and never panic: domain errors yield NaN or ±Inf.
type Unary func(x float64) float64

// Func describes a named function. Arity is 1 for every function of the
// grammar; a zero Arity is treated as 1 and any other value is rejected by
// NewRegistry, since Impl takes exactly one argument.
type Func struct {
	Name  string
	Arity int
	Impl  Unary
}

// Call applies the function to x.
func (f *Func) Call(x float64) float64 {
	return f.Impl(x)
}

// Registry maps function names to their definitions. A Registry is read-only
// after construction and safe for concurrent use.
type Registry struct {
	funcs map[string]*Func
	names []string
}

// NewRegistry builds a registry from the given definitions. Later entries
// replace earlier ones with the same name.
//
// It panics if a definition has no name, no Impl or an Arity other than 1,
// as that is a programming error.
func NewRegistry(defs ...Func) *Registry {
	r := &Registry{funcs: make(map[string]*Func, len(defs))}
	for _, def := range defs {
		def := def
		if def.Arity == 0 {
			def.Arity = 1
		}
		if def.Name == "" || def.Impl == nil || def.Arity != 1 {
			panic(fmt.Sprintf("functions: invalid definition %q with arity %d", def.Name, def.Arity))
		}
		r.funcs[def.Name] = &def
	}
	r.names = make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

var defaultRegistry = NewRegistry(
	Func{Name: "sin", Arity: 1, Impl: math.Sin},
	Func{Name: "cos", Arity: 1, Impl: math.Cos},
	Func{Name: "tan", Arity: 1, Impl: math.Tan},
	Func{Name: "csc", Arity: 1, Impl: func(x float64) float64 { return 1 / math.Sin(x) }},
	Func{Name: "sec", Arity: 1, Impl: func(x float64) float64 { return 1 / math.Cos(x) }},
	Func{Name: "cot", Arity: 1, Impl: func(x float64) float64 { return 1 / math.Tan(x) }},
	Func{Name: "sinh", Arity: 1, Impl: math.Sinh},
	Func{Name: "cosh", Arity: 1, Impl: math.Cosh},
	Func{Name: "tanh", Arity: 1, Impl: math.Tanh},
	Func{Name: "sqrt", Arity: 1, Impl: math.Sqrt},
	Func{Name: "abs", Arity: 1, Impl: math.Abs},
)

// Default returns the registry of the surface grammar.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the sorted function names. The slice must not be modified.
func (r *Registry) Names() []string {
	return r.names
}

// maxSuggestDistance bounds the edit distance of a "did you mean" suggestion.
const maxSuggestDistance = 2

// Suggest returns the registered name closest to an unknown name, or "" when
// nothing is close enough.
//
// Abbreviations are matched first ("sq" → "sqrt"); otherwise the name with the
// smallest edit distance wins, provided it is within maxSuggestDistance.
func (r *Registry) Suggest(name string) string {
	if name == "" {
		return ""
	}
	if ranks := fuzzy.RankFindFold(name, r.names); len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxSuggestDistance+1
	for _, candidate := range r.names {
		if d := fuzzy.LevenshteinDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
