package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// Mermaid produces a Mermaid graph TD diagram of the packages in scope.
// Each package is a subgraph holding its versions; a requirement becomes an
// arrow from the requiring version to the required package, labelled with
// its constraint. Versions named in selected are highlighted.
func Mermaid(s *graph.Scope, selected map[string]string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if s.Empty() {
		return sb.String()
	}

	for p := range s.Len() {
		pkg := s.Package(p)
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%s (depth %d)\"]\n", packageID(p), escape(pkg.Name), s.Depth(p)))
		for v, ver := range pkg.Versions {
			label := escape(ver.Name)
			if ver.Impact > 0 {
				label = fmt.Sprintf("%s impact %g", label, ver.Impact)
			}
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]", versionID(p, v), label))
			if selected[pkg.Name] == ver.Name {
				sb.WriteString(":::selected")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("  end\n")
	}

	// Edges whose target fell outside the bound are not drawn.
	for p := range s.Len() {
		for v, ver := range s.Package(p).Versions {
			for _, e := range ver.Requires {
				to, ok := s.Position(e.Target)
				if !ok {
					continue
				}
				sb.WriteString(fmt.Sprintf("  %s -->|\"%s\"| %s\n", versionID(p, v), escape(e.Constraint), packageID(to)))
			}
		}
	}

	if len(selected) > 0 {
		sb.WriteString("  classDef selected fill:#d4f7d4,stroke:#2e7d32\n")
	}
	return sb.String()
}

func packageID(p int) string { return fmt.Sprintf("P%d", p) }

func versionID(p, v int) string { return fmt.Sprintf("P%dV%d", p, v) }

// escape keeps labels inside Mermaid's quoted strings.
func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
