package capability

import "strings"

// Resolve computes (defaults ∪ additions) \ removals. Removal always wins,
// independent of where a name appears in the inputs.
func Resolve(defaults, additions, removals []Name) Set {
	drop := NewSet(removals...)
	out := make(Set, len(defaults)+len(additions))
	for _, group := range [][]Name{defaults, additions} {
		for _, n := range group {
			if drop.Has(n) {
				continue
			}
			out[n] = struct{}{}
		}
	}
	return out
}

// Resolve applies s.Removals to s.Defaults and s.Additions.
func (s Spec) Resolve() Set {
	return Resolve(s.Defaults, s.Additions, s.Removals)
}

// ParseList splits a whitespace separated option value into names.
func ParseList(raw string) []Name {
	fields := strings.Fields(raw)
	out := make([]Name, 0, len(fields))
	for _, f := range fields {
		out = append(out, Name(f))
	}
	return out
}
