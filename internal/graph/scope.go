package graph

import (
	"errors"
	"fmt"
	"math/big"
)

// DepthBound limits traversal from the requirement file, counted in edges of
// the package -> version -> package graph. Direct dependencies sit at depth 2
// and every further package hop adds 2.
type DepthBound int

// Unbounded traverses the whole graph.
const Unbounded DepthBound = -1

// ErrInvalidDepth is returned for bounds that are odd or below Unbounded.
var ErrInvalidDepth = errors.New("invalid depth bound")

// LevelBound converts a user-facing level (1 = direct dependencies) into an
// edge bound. -1 stays Unbounded.
func LevelBound(level int) DepthBound {
	if level == -1 {
		return Unbounded
	}
	return DepthBound(level * 2)
}

// Validate rejects malformed bounds.
func (d DepthBound) Validate() error {
	switch {
	case d == Unbounded:
		return nil
	case d < 0:
		return fmt.Errorf("%w: %d (must be >= 0 or -1 for unbounded)", ErrInvalidDepth, int(d))
	case d%2 != 0:
		return fmt.Errorf("%w: %d (must be even)", ErrInvalidDepth, int(d))
	}
	return nil
}

// Allows reports whether a node at depth lies within the bound.
func (d DepthBound) Allows(depth int) bool {
	return d == Unbounded || depth <= int(d)
}

func (d DepthBound) String() string {
	if d == Unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", int(d))
}

// Scope is the depth-bounded view of a graph: the packages reachable from the
// roots within the bound, in breadth-first discovery order. Positions in the
// scope are the fixed variable order used by the search engine.
type Scope struct {
	graph *Graph
	bound DepthBound
	order []int // position -> package index
	pos   []int // package index -> position, -1 when out of scope
	depth []int // position -> depth
}

// Scope computes the in-scope packages of g for bound. Roots are visited in
// declaration order, then each node's versions in candidate order and each
// version's edges in order. A node's depth is its shortest distance from the
// requirement file; cycles terminate because a node is expanded once.
func (g *Graph) Scope(bound DepthBound) (*Scope, error) {
	if err := bound.Validate(); err != nil {
		return nil, err
	}

	s := &Scope{
		graph: g,
		bound: bound,
		pos:   make([]int, len(g.packages)),
	}
	for i := range s.pos {
		s.pos[i] = -1
	}

	const rootDepth = 2
	if !bound.Allows(rootDepth) {
		return s, nil
	}

	seen := make([]bool, len(g.packages))
	type bfsEntry struct {
		pkg   int
		depth int
	}
	var queue []bfsEntry
	for _, r := range g.roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		queue = append(queue, bfsEntry{pkg: r, depth: rootDepth})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		s.pos[cur.pkg] = len(s.order)
		s.order = append(s.order, cur.pkg)
		s.depth = append(s.depth, cur.depth)

		next := cur.depth + 2
		if !bound.Allows(next) {
			continue
		}
		for _, v := range g.packages[cur.pkg].Versions {
			for _, e := range v.Requires {
				if seen[e.Target] {
					continue
				}
				seen[e.Target] = true
				queue = append(queue, bfsEntry{pkg: e.Target, depth: next})
			}
		}
	}
	return s, nil
}

// Graph returns the underlying graph.
func (s *Scope) Graph() *Graph { return s.graph }

// Bound returns the depth bound the scope was computed for.
func (s *Scope) Bound() DepthBound { return s.bound }

// Len is the number of in-scope packages.
func (s *Scope) Len() int { return len(s.order) }

// Empty reports whether no package lies within the bound.
func (s *Scope) Empty() bool { return len(s.order) == 0 }

// PackageIndex returns the graph index of the package at position p.
func (s *Scope) PackageIndex(p int) int { return s.order[p] }

// Package returns the package at position p.
func (s *Scope) Package(p int) *Package { return &s.graph.packages[s.order[p]] }

// Depth returns the depth of the package at position p.
func (s *Scope) Depth(p int) int { return s.depth[p] }

// Position returns the scope position of graph package index i.
func (s *Scope) Position(i int) (int, bool) {
	if i < 0 || i >= len(s.pos) || s.pos[i] < 0 {
		return -1, false
	}
	return s.pos[i], true
}

// MaxDepth is the largest depth present in the scope, 0 when empty.
func (s *Scope) MaxDepth() int {
	if len(s.depth) == 0 {
		return 0
	}
	return s.depth[len(s.depth)-1]
}

// Info summarizes the scope: what the search will range over.
type Info struct {
	GraphID            string `json:"graphId"`
	MaxDepth           string `json:"maxDepth"`
	DepthReached       int    `json:"depthReached"`
	Packages           int    `json:"packages"`
	DirectPackages     int    `json:"directPackages"`
	Versions           int    `json:"versions"`
	Edges              int    `json:"edges"`
	VulnerableVersions int    `json:"vulnerableVersions"`
	// SearchSpace is the product of candidate counts, before any pruning.
	SearchSpace string `json:"searchSpace"`
}

// Info computes summary counts over the in-scope packages. Only edges whose
// both ends are in scope are counted.
func (s *Scope) Info() Info {
	info := Info{
		GraphID:      s.graph.id,
		MaxDepth:     s.bound.String(),
		DepthReached: s.MaxDepth(),
		Packages:     len(s.order),
	}
	space := big.NewInt(1)
	if len(s.order) == 0 {
		space.SetInt64(0)
	}
	for p, idx := range s.order {
		if s.depth[p] == 2 {
			info.DirectPackages++
		}
		pkg := s.graph.packages[idx]
		info.Versions += len(pkg.Versions)
		space.Mul(space, big.NewInt(int64(len(pkg.Versions))))
		for _, v := range pkg.Versions {
			if v.Impact > 0 {
				info.VulnerableVersions++
			}
			for _, e := range v.Requires {
				if _, ok := s.Position(e.Target); ok {
					info.Edges++
				}
			}
		}
	}
	info.SearchSpace = space.String()
	return info
}
