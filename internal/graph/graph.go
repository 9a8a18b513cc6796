package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/depsolve/internal/semver"
)

// ErrInvalidGraph is wrapped by every error New returns for a malformed Document.
var ErrInvalidGraph = errors.New("invalid graph")

// Impact scores of versions lie in [MinImpact, MaxImpact].
const (
	MinImpact = 0.0
	MaxImpact = 10.0
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGraph, fmt.Sprintf(format, args...))
}

// New builds an immutable Graph from doc. Candidate versions are sorted
// ascending (semantic order where both sides parse), requirement constraints
// are resolved to accepted version sets, and edges are ordered by the
// declaration order of their target package.
func New(doc Document) (*Graph, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return nil, invalid("id is required")
	}

	g := &Graph{
		id:        id,
		ecosystem: doc.Ecosystem,
		moment:    doc.Moment,
		packages:  make([]Package, len(doc.Packages)),
		index:     make(map[string]int, len(doc.Packages)),
	}
	if g.moment.IsZero() {
		g.moment = time.Now().UTC()
	}

	for i, ps := range doc.Packages {
		name := strings.TrimSpace(ps.Name)
		if name == "" {
			return nil, invalid("package %d has no name", i)
		}
		if _, dup := g.index[name]; dup {
			return nil, invalid("duplicate package %q", name)
		}
		g.index[name] = i

		weight := 1.0
		if ps.Weight != nil {
			weight = *ps.Weight
		}
		if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, invalid("package %q: weight must be a finite number >= 0", name)
		}
		eco := ps.Ecosystem
		if eco == "" {
			eco = doc.Ecosystem
		}
		g.packages[i] = Package{Name: name, Ecosystem: eco, Weight: weight}
	}

	// Version lists first, so constraint resolution can see every candidate.
	sortedSpecs := make([][]VersionSpec, len(doc.Packages))
	for i, ps := range doc.Packages {
		specs := make([]VersionSpec, len(ps.Versions))
		copy(specs, ps.Versions)
		seen := make(map[string]bool, len(specs))
		for _, vs := range specs {
			v := strings.TrimSpace(vs.Version)
			if v == "" {
				return nil, invalid("package %q has a version with no name", ps.Name)
			}
			if seen[v] {
				return nil, invalid("package %q: duplicate version %q", ps.Name, v)
			}
			seen[v] = true
			if math.IsNaN(vs.Impact) || vs.Impact < MinImpact || vs.Impact > MaxImpact {
				return nil, invalid("%s@%s: impact must be within [%g, %g], got %g", ps.Name, v, MinImpact, MaxImpact, vs.Impact)
			}
		}
		sort.SliceStable(specs, func(a, b int) bool {
			return semver.CompareRaw(strings.TrimSpace(specs[a].Version), strings.TrimSpace(specs[b].Version)) < 0
		})
		sortedSpecs[i] = specs

		versions := make([]Version, len(specs))
		for j, vs := range specs {
			versions[j] = Version{Name: strings.TrimSpace(vs.Version), Impact: vs.Impact}
		}
		g.packages[i].Versions = versions
	}

	for i, specs := range sortedSpecs {
		pkg := &g.packages[i]
		for j, vs := range specs {
			edges, err := g.resolveEdges(pkg.Name, vs)
			if err != nil {
				return nil, err
			}
			pkg.Versions[j].Requires = edges
		}
	}

	seenRoot := make(map[int]bool, len(doc.Roots))
	for _, r := range doc.Roots {
		idx, ok := g.index[strings.TrimSpace(r)]
		if !ok {
			return nil, invalid("root %q is not a declared package", r)
		}
		if seenRoot[idx] {
			continue
		}
		seenRoot[idx] = true
		g.roots = append(g.roots, idx)
	}

	return g, nil
}

// resolveEdges turns the requirement maps of one version into edges. An
// explicit Accepts list for a dependency takes precedence over its
// constraint, whose text is then kept only as a label.
func (g *Graph) resolveEdges(owner string, vs VersionSpec) ([]Edge, error) {
	targets := make(map[int]Edge)

	for dep, names := range vs.Accepts {
		ti, ok := g.index[strings.TrimSpace(dep)]
		if !ok {
			return nil, invalid("%s@%s accepts versions of unknown package %q", owner, vs.Version, dep)
		}
		target := g.packages[ti]
		accept := make([]bool, len(target.Versions))
		for _, n := range names {
			k, ok := target.versionIndex(n)
			if !ok {
				return nil, invalid("%s@%s accepts unknown version %s@%s", owner, vs.Version, dep, n)
			}
			accept[k] = true
		}
		label := strings.TrimSpace(vs.Requires[dep])
		if label == "" {
			label = strings.Join(names, " || ")
		}
		targets[ti] = Edge{Target: ti, Constraint: label, accept: accept}
	}

	for dep, raw := range vs.Requires {
		ti, ok := g.index[strings.TrimSpace(dep)]
		if !ok {
			return nil, invalid("%s@%s requires unknown package %q", owner, vs.Version, dep)
		}
		if _, explicit := targets[ti]; explicit {
			continue
		}
		c, err := semver.ParseConstraint(raw)
		if err != nil {
			return nil, invalid("%s@%s requires %s: %v", owner, vs.Version, dep, err)
		}
		target := g.packages[ti]
		accept := make([]bool, len(target.Versions))
		for k, tv := range target.Versions {
			accept[k] = semver.SatisfiesRaw(tv.Name, c)
		}
		targets[ti] = Edge{Target: ti, Constraint: strings.TrimSpace(raw), accept: accept}
	}

	edges := make([]Edge, 0, len(targets))
	for _, e := range targets {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(a, b int) bool { return edges[a].Target < edges[b].Target })
	return edges, nil
}

func (p *Package) versionIndex(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, v := range p.Versions {
		if v.Name == name {
			return i, true
		}
	}
	return -1, false
}

// VersionIndex returns the candidate index of the named version.
func (p *Package) VersionIndex(name string) (int, bool) {
	return p.versionIndex(name)
}

// ID returns the graph identifier.
func (g *Graph) ID() string { return g.id }

// Ecosystem returns the default ecosystem of the graph's packages.
func (g *Graph) Ecosystem() string { return g.ecosystem }

// Moment is when the graph was built; it versions cached derivations.
func (g *Graph) Moment() time.Time { return g.moment }

// Packages returns every package node in declaration order.
func (g *Graph) Packages() []Package { return g.packages }

// Package returns the package at index i.
func (g *Graph) Package(i int) *Package { return &g.packages[i] }

// Lookup returns the index of the named package.
func (g *Graph) Lookup(name string) (int, bool) {
	i, ok := g.index[strings.TrimSpace(name)]
	return i, ok
}

// Roots returns the indexes of the packages required directly by the
// requirement file, in declaration order.
func (g *Graph) Roots() []int { return g.roots }

// Stats counts the packages, versions and dependency edges of g.
func (g *Graph) Stats() GraphStats {
	var s GraphStats
	s.PackageCount = len(g.packages)
	for _, p := range g.packages {
		s.VersionCount += len(p.Versions)
		for _, v := range p.Versions {
			s.EdgeCount += len(v.Requires)
		}
	}
	return s
}

// Summary returns the listing entry for g.
func (g *Graph) Summary() GraphSummary {
	return GraphSummary{ID: g.id, Ecosystem: g.ecosystem, Moment: g.moment, Stats: g.Stats()}
}

// Document converts g back to its interchange form. Requirements are written
// as explicit Accepts lists so that a round trip never re-resolves
// constraints; the constraint text is kept in Requires.
func (g *Graph) Document() Document {
	doc := Document{
		ID:        g.id,
		Ecosystem: g.ecosystem,
		Moment:    g.moment,
		Roots:     make([]string, 0, len(g.roots)),
		Packages:  make([]PackageSpec, 0, len(g.packages)),
	}
	for _, r := range g.roots {
		doc.Roots = append(doc.Roots, g.packages[r].Name)
	}
	for _, p := range g.packages {
		w := p.Weight
		ps := PackageSpec{Name: p.Name, Ecosystem: p.Ecosystem, Weight: &w}
		for _, v := range p.Versions {
			vs := VersionSpec{Version: v.Name, Impact: v.Impact}
			for _, e := range v.Requires {
				target := g.packages[e.Target]
				if vs.Accepts == nil {
					vs.Accepts = make(map[string][]string)
					vs.Requires = make(map[string]string)
				}
				names := make([]string, 0)
				for _, k := range e.Acceptable() {
					names = append(names, target.Versions[k].Name)
				}
				vs.Accepts[target.Name] = names
				vs.Requires[target.Name] = e.Constraint
			}
			ps.Versions = append(ps.Versions, vs)
		}
		doc.Packages = append(doc.Packages, ps)
	}
	return doc
}
