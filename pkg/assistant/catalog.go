package assistant

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/sandrolain/gosurface/pkg/types"
)

// Shape is a named surface known to a Catalog.
type Shape struct {
	Name    string
	Aliases []string
	Suggestion
}

// DefaultShapes is the built-in shape list.
var DefaultShapes = []Shape{
	{Name: "sphere", Aliases: []string{"ball", "globe", "orb"}, Suggestion: Suggestion{"5", types.Spherical}},
	{Name: "ripple", Aliases: []string{"ripples", "pond"}, Suggestion: Suggestion{"sin(x^2 + y^2)", types.Cartesian}},
	{Name: "cone", Aliases: []string{"funnel"}, Suggestion: Suggestion{"r", types.Cylindrical}},
	{Name: "spiral staircase", Aliases: []string{"spiral", "helix", "staircase", "helicoid"}, Suggestion: Suggestion{"theta / 2", types.Cylindrical}},
	{Name: "donut", Aliases: []string{"doughnut", "torus", "ring"}, Suggestion: Suggestion{"2 + sin(5 * phi)", types.Spherical}},
	{Name: "paraboloid", Aliases: []string{"bowl", "dish"}, Suggestion: Suggestion{"(x^2 + y^2) / 10", types.Cartesian}},
	{Name: "saddle", Aliases: []string{"hyperbolic paraboloid", "pringle"}, Suggestion: Suggestion{"(x^2 - y^2) / 10", types.Cartesian}},
	{Name: "wave", Aliases: []string{"waves", "egg crate"}, Suggestion: Suggestion{"sin(x) * cos(y)", types.Cartesian}},
}

// maxTypoDistance bounds the edit distance between a prompt word and a
// single-word key for the word to count as a misspelling of the key.
const maxTypoDistance = 2

// Catalog is an offline Assistant matching prompts against known shapes.
type Catalog struct {
	shapes []Shape
	keys   []string
	owner  map[string]int
}

// NewCatalog builds a catalog from shapes, or from DefaultShapes when none are
// given.
func NewCatalog(shapes ...Shape) *Catalog {
	if len(shapes) == 0 {
		shapes = DefaultShapes
	}
	c := &Catalog{
		shapes: shapes,
		owner:  make(map[string]int),
	}
	for k, shape := range shapes {
		for _, key := range append([]string{shape.Name}, shape.Aliases...) {
			key = strings.ToLower(key)
			if _, dup := c.owner[key]; dup {
				continue
			}
			c.owner[key] = k
			c.keys = append(c.keys, key)
		}
	}
	// Longer keys first so that multi-word names win over their parts.
	sort.SliceStable(c.keys, func(a, b int) bool {
		return len(c.keys[a]) > len(c.keys[b])
	})
	return c
}

// Shapes returns the catalog entries.
func (c *Catalog) Shapes() []Shape {
	return c.shapes
}

// Suggest implements Assistant. Keys contained in the prompt win, longest
// first; otherwise each prompt word is matched fuzzily against the keys.
func (c *Catalog) Suggest(ctx context.Context, prompt string) (*Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.Join(words(prompt), " ")
	if text == "" {
		return nil, nil
	}

	padded := " " + text + " "
	for _, key := range c.keys {
		if strings.Contains(padded, " "+key+" ") {
			return c.suggestion(key), nil
		}
	}

	best, bestDistance := "", -1
	for _, word := range words(prompt) {
		if len(word) < 3 {
			continue
		}
		for _, rank := range fuzzy.RankFindFold(word, c.keys) {
			if rank.Distance <= maxTypoDistance && (bestDistance < 0 || rank.Distance < bestDistance) {
				best, bestDistance = rank.Target, rank.Distance
			}
		}
		for _, key := range c.keys {
			if strings.Contains(key, " ") {
				continue
			}
			d := fuzzy.LevenshteinDistance(word, key)
			if d <= maxTypoDistance && d < len(key)/2 && (bestDistance < 0 || d < bestDistance) {
				best, bestDistance = key, d
			}
		}
	}
	if best == "" {
		return nil, nil
	}
	return c.suggestion(best), nil
}

func (c *Catalog) suggestion(key string) *Suggestion {
	s := c.shapes[c.owner[key]].Suggestion
	return &s
}

// words lower-cases s and splits it on anything that is not a letter.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
