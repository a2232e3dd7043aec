package aggregate

import (
	"fmt"
	"sort"
	"strings"
)

// Aliases maps a canonical model name to the spellings upstream systems use
// for it.
type Aliases map[string][]string

// Resolver maps raw model names to canonical ones by exact lookup.
// Matching ignores case and collapses whitespace; nothing else is fuzzy, so
// "SXM4" never resolves to "SXM40".
type Resolver struct {
	index map[string]string
}

// NewResolver builds a resolver. Every canonical name also resolves to
// itself. An alias claimed by two canonical names is an error.
func NewResolver(aliases Aliases) (*Resolver, error) {
	r := &Resolver{index: make(map[string]string)}
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, canonical := range names {
		for _, spelling := range append([]string{canonical}, aliases[canonical]...) {
			norm := normalizeName(spelling)
			if norm == "" {
				continue
			}
			if owner, taken := r.index[norm]; taken && owner != canonical {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", spelling, owner, canonical)
			}
			r.index[norm] = canonical
		}
	}
	return r, nil
}

// Resolve returns the canonical name. A nil resolver passes names through.
func (r *Resolver) Resolve(name string) (string, bool) {
	if r == nil {
		return name, true
	}
	canonical, ok := r.index[normalizeName(name)]
	return canonical, ok
}

// Len is the number of distinct spellings known to the resolver.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.index)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
