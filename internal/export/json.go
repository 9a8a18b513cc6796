package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// ScopeExport is the JSON export of the part of a graph within a depth bound.
type ScopeExport struct {
	GraphID    string          `json:"graphId"`
	MaxDepth   string          `json:"maxDepth"`
	ExportedAt string          `json:"exportedAt"`
	Info       graph.Info      `json:"info"`
	Packages   []PackageExport `json:"packages"`
}

// PackageExport describes one in-scope package.
type PackageExport struct {
	Name     string          `json:"name"`
	Depth    int             `json:"depth"`
	Weight   float64         `json:"weight"`
	Versions []VersionExport `json:"versions"`
}

// VersionExport describes a candidate version and its requirements.
type VersionExport struct {
	Version  string          `json:"version"`
	Impact   float64         `json:"impact"`
	Requires []RequireExport `json:"requires,omitempty"`
}

// RequireExport is one requirement edge, with the target versions it admits.
// OutOfScope is set when the target lies beyond the depth bound; such edges
// are not enforced by the search.
type RequireExport struct {
	Package    string   `json:"package"`
	Constraint string   `json:"constraint"`
	Accepts    []string `json:"accepts"`
	OutOfScope bool     `json:"outOfScope,omitempty"`
}

// ExportScope builds a ScopeExport. Packages appear in scope order, which is
// also the order the search assigns them in.
func ExportScope(s *graph.Scope, now time.Time) *ScopeExport {
	g := s.Graph()
	out := &ScopeExport{
		GraphID:    g.ID(),
		MaxDepth:   s.Bound().String(),
		ExportedAt: now.UTC().Format(time.RFC3339),
		Info:       s.Info(),
		Packages:   make([]PackageExport, 0, s.Len()),
	}

	for p := range s.Len() {
		pkg := s.Package(p)
		pe := PackageExport{
			Name:     pkg.Name,
			Depth:    s.Depth(p),
			Weight:   pkg.Weight,
			Versions: make([]VersionExport, 0, len(pkg.Versions)),
		}
		for _, ver := range pkg.Versions {
			ve := VersionExport{Version: ver.Name, Impact: ver.Impact}
			for _, e := range ver.Requires {
				target := g.Package(e.Target)
				accepts := make([]string, 0)
				for _, i := range e.Acceptable() {
					accepts = append(accepts, target.Versions[i].Name)
				}
				_, inScope := s.Position(e.Target)
				ve.Requires = append(ve.Requires, RequireExport{
					Package:    target.Name,
					Constraint: e.Constraint,
					Accepts:    accepts,
					OutOfScope: !inScope,
				})
			}
			pe.Versions = append(pe.Versions, ve)
		}
		out.Packages = append(out.Packages, pe)
	}
	return out
}

// WriteJSON writes v to w as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
