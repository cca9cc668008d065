package graph

import (
	"sort"

	"funee/internal/resolver"
)

// Shake computes the reachable set from the entry's default export.
// Macro declarations never survive: their call-sites were replaced during
// expansion, so anything referenced only by a macro body dies with it.
// Type-only declarations are dropped the same way.
func (g *Graph) Shake() []*Decl {
	alive := make(map[resolver.CanonicalName]bool)
	var visit func(cn resolver.CanonicalName)
	visit = func(cn resolver.CanonicalName) {
		if alive[cn] {
			return
		}
		decl, ok := g.Lookup(cn)
		if !ok {
			return
		}
		if decl.Kind == MACRO_DECL || decl.Kind == TYPE_ONLY_DECL {
			return
		}
		alive[cn] = true
		for _, next := range sortedRefs(decl.References) {
			visit(next)
		}
	}
	visit(g.Entry)

	var out []*Decl
	for _, d := range g.Decls {
		if alive[d.Canonical] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
