package graph

import "time"

// --- Models ---

// Graph is a materialized dependency graph for one requirement file. It is
// immutable once built by New; every accessor returns data that callers must
// treat as read-only, which makes a *Graph safe to share across goroutines.
type Graph struct {
	id        string
	ecosystem string
	moment    time.Time
	packages  []Package
	index     map[string]int
	roots     []int
}

// Package is a package node. Versions are held in ascending candidate order.
type Package struct {
	Name      string
	Ecosystem string
	// Weight is the opaque per-node weight used by the weighted mean.
	Weight   float64
	Versions []Version
}

// Version is one candidate version of a package.
type Version struct {
	Name     string
	Impact   float64
	Requires []Edge
}

// Edge says that selecting the owning version requires the Target package to
// be at one of the accepted versions.
type Edge struct {
	// Target is the index of the required package in Graph.Packages().
	Target int
	// Constraint is the textual requirement the edge was resolved from.
	Constraint string
	accept     []bool
}

// Accepts reports whether version index v of the target package satisfies e.
func (e Edge) Accepts(v int) bool {
	return v >= 0 && v < len(e.accept) && e.accept[v]
}

// Acceptable returns the accepted version indexes of the target, ascending.
func (e Edge) Acceptable() []int {
	out := make([]int, 0, len(e.accept))
	for i, ok := range e.accept {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// GraphStats summarizes a stored graph.
type GraphStats struct {
	PackageCount int `json:"packageCount"`
	VersionCount int `json:"versionCount"`
	EdgeCount    int `json:"edgeCount"`
}

// GraphSummary is the listing entry returned by Store.ListGraphs.
type GraphSummary struct {
	ID        string     `json:"id"`
	Ecosystem string     `json:"ecosystem,omitempty"`
	Moment    time.Time  `json:"moment"`
	Stats     GraphStats `json:"stats"`
}

// --- Interchange format ---

// Document is the interchange format produced by the graph builder that
// expands a requirement file. It is accepted as YAML or JSON.
type Document struct {
	ID        string        `json:"id" yaml:"id"`
	Ecosystem string        `json:"ecosystem,omitempty" yaml:"ecosystem,omitempty"`
	Moment    time.Time     `json:"moment,omitzero" yaml:"moment,omitempty"`
	Roots     []string      `json:"roots" yaml:"roots"`
	Packages  []PackageSpec `json:"packages" yaml:"packages"`
}

// PackageSpec describes one package node in a Document.
type PackageSpec struct {
	Name      string        `json:"name" yaml:"name"`
	Ecosystem string        `json:"ecosystem,omitempty" yaml:"ecosystem,omitempty"`
	Weight    *float64      `json:"weight,omitempty" yaml:"weight,omitempty"`
	Versions  []VersionSpec `json:"versions" yaml:"versions"`
}

// VersionSpec describes one candidate version in a Document. Requires maps a
// dependency name to a version constraint; Accepts lists the accepted
// versions explicitly and wins over Requires for the same dependency.
type VersionSpec struct {
	Version  string              `json:"version" yaml:"version"`
	Impact   float64             `json:"impact" yaml:"impact"`
	Requires map[string]string   `json:"requires,omitempty" yaml:"requires,omitempty"`
	Accepts  map[string][]string `json:"accepts,omitempty" yaml:"accepts,omitempty"`
}
