package catalog

import (
	"strings"

	"github.com/hpungsan/thermap/internal/errors"
)

// chargeSuffixes are stripped before the single-sign suffixes, in this order.
var chargeSuffixes = []string{"2+", "3+", "4+"}

// StripCharge removes at most one trailing charge suffix from a species name.
func StripCharge(name string) string {
	for _, suffix := range chargeSuffixes {
		if s, ok := strings.CutSuffix(name, suffix); ok {
			return s
		}
	}
	if strings.HasSuffix(name, "+") || strings.HasSuffix(name, "-") {
		return name[:len(name)-1]
	}
	return name
}

// DecomposeName resolves a species name into element counts.
//
// Matching is first-match over catalog order, not longest-match: with P
// listed before Pb, "Pb" resolves to P followed by an unresolvable "b".
// Only one digit is read after a symbol, so counts are limited to 1-9.
func DecomposeName(elems *Elements, name string) ([]ElementCount, error) {
	rest := StripCharge(name)
	if _, ok := elems.Lookup(rest); ok {
		return []ElementCount{{Symbol: rest, Count: 1}}, nil
	}

	var out []ElementCount
	for rest != "" {
		matched := false
		for _, el := range elems.list {
			if el.Symbol == "" || !strings.HasPrefix(rest, el.Symbol) {
				continue
			}
			rest = rest[len(el.Symbol):]
			count := 1
			if rest != "" && rest[0] >= '1' && rest[0] <= '9' {
				count = int(rest[0] - '0')
				rest = rest[1:]
			}
			out = append(out, ElementCount{Symbol: el.Symbol, Count: count})
			matched = true
			break
		}
		if !matched {
			return nil, errors.NewMissingElement(name, rest)
		}
	}
	return out, nil
}

// Decompose returns a copy of species with every composition populated.
// The whole batch fails on the first unresolvable species; no partial
// result is returned.
func Decompose(elems *Elements, species []Species) ([]Species, error) {
	out := make([]Species, len(species))
	for i, sp := range species {
		ecs, err := DecomposeName(elems, sp.Name)
		if err != nil {
			return nil, err
		}
		sp.Elements = ecs
		out[i] = sp
	}
	return out, nil
}

// Build decomposes species against elems and returns the resulting Set.
func Build(elems *Elements, species []Species) (*Set, error) {
	decomposed, err := Decompose(elems, species)
	if err != nil {
		return nil, err
	}
	return &Set{Elements: elems, Species: decomposed}, nil
}
