package engine

import "github.com/dusk-indust/depsolve/internal/graph"

// IsConsistent walks the scope breadth-first from the roots and checks, for
// every assigned package, each edge of its chosen version. An edge whose
// target lies outside the scope or is unassigned neither satisfies nor
// violates. It stops at the first violated edge. A version index outside the
// package's candidates is never consistent.
//
// IsConsistent only reads the graph and is safe for concurrent use.
func IsConsistent(s *graph.Scope, a Assignment) bool {
	for p := 0; p < s.Len(); p++ {
		idx := s.PackageIndex(p)
		v, ok := a[idx]
		if !ok {
			continue
		}
		pkg := s.Package(p)
		if v < 0 || v >= len(pkg.Versions) {
			return false
		}
		for _, e := range pkg.Versions[v].Requires {
			if _, in := s.Position(e.Target); !in {
				continue
			}
			w, assigned := a[e.Target]
			if !assigned {
				continue
			}
			if !e.Accepts(w) {
				return false
			}
		}
	}
	return true
}
