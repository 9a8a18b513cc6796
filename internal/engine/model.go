package engine

import (
	"sort"
	"strings"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// Configuration maps a package name to the chosen version name. It may be
// partial. JSON encoding sorts the keys, so equal configurations encode to
// identical bytes.
type Configuration map[string]string

// Assignment is a resolved Configuration: graph package index to candidate
// version index.
type Assignment map[int]int

// RankedConfiguration is a full configuration together with its aggregate.
type RankedConfiguration struct {
	Configuration Configuration `json:"configuration"`
	Impact        float64       `json:"impact"`
}

// Model is a Scope compiled for search. Positions follow the scope's
// breadth-first discovery order, candidates the graph's ascending version
// order. A Model is read-only after Compile and may be shared by concurrent
// searches.
type Model struct {
	scope   *graph.Scope
	n       int
	impacts [][]float64
	// forward[p][v] lists edges of (p, v) into later positions, as the
	// target candidates they rule out.
	forward [][][]link
	// backward[p][v] lists edges of (p, v) into earlier positions or p itself.
	backward [][][]check
}

type link struct {
	to     int
	reject []int
}

type check struct {
	to     int
	accept []bool
}

// Compile builds the search model for s. Edges leaving the scope are dropped:
// a package beyond the bound is unconstrained.
func Compile(s *graph.Scope) *Model {
	m := &Model{
		scope:    s,
		n:        s.Len(),
		impacts:  make([][]float64, s.Len()),
		forward:  make([][][]link, s.Len()),
		backward: make([][][]check, s.Len()),
	}
	for p := 0; p < m.n; p++ {
		pkg := s.Package(p)
		m.impacts[p] = make([]float64, len(pkg.Versions))
		m.forward[p] = make([][]link, len(pkg.Versions))
		m.backward[p] = make([][]check, len(pkg.Versions))
		for v, ver := range pkg.Versions {
			m.impacts[p][v] = ver.Impact
			for _, e := range ver.Requires {
				to, ok := s.Position(e.Target)
				if !ok {
					continue
				}
				size := len(s.Package(to).Versions)
				if to > p {
					var reject []int
					for w := 0; w < size; w++ {
						if !e.Accepts(w) {
							reject = append(reject, w)
						}
					}
					if len(reject) > 0 {
						m.forward[p][v] = append(m.forward[p][v], link{to: to, reject: reject})
					}
					continue
				}
				accept := make([]bool, size)
				for w := range accept {
					accept[w] = e.Accepts(w)
				}
				m.backward[p][v] = append(m.backward[p][v], check{to: to, accept: accept})
			}
		}
	}
	return m
}

// Scope returns the scope the model was compiled from.
func (m *Model) Scope() *graph.Scope { return m.scope }

// Len is the number of in-scope packages.
func (m *Model) Len() int { return m.n }

// Empty reports whether the scope holds no package.
func (m *Model) Empty() bool { return m.n == 0 }

// Resolve maps package and version names onto the graph. Every package of
// the graph may be named, in scope or not; an unknown name is an InputError.
func (m *Model) Resolve(cfg Configuration) (Assignment, error) {
	g := m.scope.Graph()
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	a := make(Assignment, len(cfg))
	for _, name := range names {
		ver := strings.TrimSpace(cfg[name])
		i, ok := g.Lookup(name)
		if !ok {
			return nil, inputErr("config", "unknown package %q", name)
		}
		if ver == "" {
			return nil, inputErr("config", "package %q has no version", name)
		}
		v, ok := g.Package(i).VersionIndex(ver)
		if !ok {
			return nil, inputErr("config", "unknown version %s@%s", name, ver)
		}
		a[i] = v
	}
	return a, nil
}

// fixedChoice resolves cfg into a per-position choice, -1 where the position
// is unassigned. Assignments outside the scope are dropped.
func (m *Model) fixedChoice(cfg Configuration) ([]int, error) {
	a, err := m.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	choice := make([]int, m.n)
	for p := range choice {
		choice[p] = -1
		if v, ok := a[m.scope.PackageIndex(p)]; ok {
			choice[p] = v
		}
	}
	return choice, nil
}

func (m *Model) fullChoice(cfg Configuration) ([]int, error) {
	choice, err := m.fixedChoice(cfg)
	if err != nil {
		return nil, err
	}
	for p, v := range choice {
		if v < 0 {
			return nil, inputErr("config", "package %q is not assigned", m.scope.Package(p).Name)
		}
	}
	return choice, nil
}

func (m *Model) configuration(choice []int) Configuration {
	cfg := make(Configuration, len(choice))
	for p, v := range choice {
		pkg := m.scope.Package(p)
		cfg[pkg.Name] = pkg.Versions[v].Name
	}
	return cfg
}

// IsConsistent reports whether cfg satisfies every dependency edge within
// the scope. Unassigned packages are unconstrained.
func (m *Model) IsConsistent(cfg Configuration) (bool, error) {
	a, err := m.Resolve(cfg)
	if err != nil {
		return false, err
	}
	return IsConsistent(m.scope, a), nil
}
