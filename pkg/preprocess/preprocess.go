// Package preprocess rewrites user-facing expression syntax into the canonical
// grammar accepted by the parser.
//
// Normalize applies three stages, strictly in order:
//
//  1. Symbol substitution: θ → theta, φ → phi, π → pi.
//  2. Absolute-value unwrapping: |x| → abs(x), innermost bar pair first,
//     repeated until a fixed point so that |x|+|y| and ||x|| both resolve.
//  3. Trigonometric power shorthand: sin^2(x) → (sin(x))^2.
//
// The trig shorthand only applies when the argument contains no parentheses:
// sin^2(2*(x+1)) is left as written and rejected by the parser. This is an
// accepted restriction of the grammar.
//
// Normalize is total: it never fails, and unbalanced input is passed through
// for the parser to report.
package preprocess

import (
	"regexp"
	"strings"
)

// Stage names, in application order.
const (
	StageSymbols  = "symbols"
	StageAbsolute = "absolute"
	StageTrigPow  = "trig-power"
)

// Step records the output of one normalization stage.
type Step struct {
	Stage  string `json:"stage"`
	Output string `json:"output"`
}

// Normalize rewrites raw into canonical syntax. It is pure and idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	return rewriteTrigPowers(unwrapAbsolute(substituteSymbols(raw)))
}

// Steps runs the same stages as Normalize and returns every intermediate
// result, for diagnostics.
func Steps(raw string) []Step {
	symbols := substituteSymbols(raw)
	absolute := unwrapAbsolute(symbols)
	trig := rewriteTrigPowers(absolute)
	return []Step{
		{Stage: StageSymbols, Output: symbols},
		{Stage: StageAbsolute, Output: absolute},
		{Stage: StageTrigPow, Output: trig},
	}
}

var symbolReplacer = strings.NewReplacer(
	"θ", "theta",
	"φ", "phi",
	"π", "pi",
)

func substituteSymbols(s string) string {
	return symbolReplacer.Replace(s)
}

// unwrapAbsolute rewrites bar pairs into abs() calls until nothing changes.
func unwrapAbsolute(s string) string {
	for {
		next := unwrapAbsoluteOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

// unwrapAbsoluteOnce makes one left-to-right pass. A bar opens a span that
// closes at the next bar; spans with nothing between the bars are skipped and
// the scan resumes at the second bar. Within a pass spans never overlap, so
// |x|+|y| becomes abs(x)+abs(y) while ||x|| only resolves its inner pair and
// needs a second pass.
func unwrapAbsoluteOnce(s string) string {
	if strings.IndexByte(s, '|') < 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 8)

	i := 0
	for i < len(s) {
		open := strings.IndexByte(s[i:], '|')
		if open < 0 {
			break
		}
		open += i
		closeRel := strings.IndexByte(s[open+1:], '|')
		if closeRel < 0 {
			break
		}
		closing := open + 1 + closeRel

		if closing == open+1 {
			// "||": no content between the bars, retry from the second bar.
			sb.WriteString(s[i : open+1])
			i = open + 1
			continue
		}

		sb.WriteString(s[i:open])
		sb.WriteString("abs(")
		sb.WriteString(s[open+1 : closing])
		sb.WriteByte(')')
		i = closing + 1
	}
	sb.WriteString(s[i:])
	return sb.String()
}

// trigPowerPattern matches func^n(args) where args holds no parentheses and
// no bars. The word boundary before the name is checked separately, since RE2
// has no lookbehind and a consumed boundary character would hide adjacent
// matches.
var trigPowerPattern = regexp.MustCompile(`(?i)(sin|cos|tan|csc|sec|cot|sinh|cosh|tanh)\^(\d+)\s*\(([^()|]+)\)`)

func rewriteTrigPowers(s string) string {
	if strings.IndexByte(s, '^') < 0 {
		return s
	}

	matches := trigPowerPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 4*len(matches))
	last := 0
	for _, m := range matches {
		if m[0] > 0 && isWordByte(s[m[0]-1]) {
			continue
		}
		name, power, args := s[m[2]:m[3]], s[m[4]:m[5]], s[m[6]:m[7]]
		sb.WriteString(s[last:m[0]])
		sb.WriteString("(")
		sb.WriteString(name)
		sb.WriteString("(")
		sb.WriteString(args)
		sb.WriteString("))^")
		sb.WriteString(power)
		last = m[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
