package evaluator

import (
	"fmt"
	"sort"
)

// Scope binds variable names to values for one evaluation.
//
// Scopes are plain maps: lookups are O(1) and insertion order is irrelevant.
// A scope must not be modified while an evaluation that uses it is running.
type Scope map[string]float64

// NewScope builds a scope from alternating name/value pairs.
//
//	scope := evaluator.NewScope("x", 1.0, "y", 2.0)
//
// It panics if pairs are malformed, as that is a programming error.
func NewScope(pairs ...interface{}) Scope {
	if len(pairs)%2 != 0 {
		panic("evaluator: NewScope requires name/value pairs")
	}
	s := make(Scope, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("evaluator: NewScope name at %d is %T, not string", i, pairs[i]))
		}
		switch v := pairs[i+1].(type) {
		case float64:
			s[name] = v
		case int:
			s[name] = float64(v)
		default:
			panic(fmt.Sprintf("evaluator: NewScope value for %q is %T, not a number", name, pairs[i+1]))
		}
	}
	return s
}

// Names returns the bound names in sorted order.
func (s Scope) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the variables of vars that the scope does not bind and that
// are not constants of e. It is used to warn about expressions whose
// free variables do not belong to the active coordinate system.
func (e *Evaluator) Missing(vars []string, scope Scope) []string {
	var missing []string
	for _, name := range vars {
		if _, ok := scope[name]; ok {
			continue
		}
		if _, ok := e.constants[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}
