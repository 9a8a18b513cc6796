package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depsolve/internal/graph"
)

func twoNodeScope(t *testing.T, bound graph.DepthBound) *graph.Scope {
	t.Helper()
	g, err := graph.New(graph.Document{
		ID:    "two-node",
		Roots: []string{"A"},
		Packages: []graph.PackageSpec{
			{Name: "A", Versions: []graph.VersionSpec{
				{Version: "1", Accepts: map[string][]string{"B": {"1"}}},
				{Version: "2", Accepts: map[string][]string{"B": {"2"}}},
			}},
			{Name: "B", Versions: []graph.VersionSpec{
				{Version: "1", Impact: 2},
				{Version: "2", Impact: 8},
			}},
		},
	})
	require.NoError(t, err)
	s, err := g.Scope(bound)
	require.NoError(t, err)
	return s
}

func TestMermaid(t *testing.T) {
	s := twoNodeScope(t, graph.Unbounded)

	want := `graph TD
  subgraph P0["A (depth 2)"]
    P0V0["1"]
    P0V1["2"]:::selected
  end
  subgraph P1["B (depth 4)"]
    P1V0["1 impact 2"]
    P1V1["2 impact 8"]:::selected
  end
  P0V0 -->|"1"| P1
  P0V1 -->|"2"| P1
  classDef selected fill:#d4f7d4,stroke:#2e7d32
`
	assert.Equal(t, want, Mermaid(s, map[string]string{"A": "2", "B": "2"}))
}

func TestMermaid_BoundedScopeDropsEdges(t *testing.T) {
	s := twoNodeScope(t, 2)

	out := Mermaid(s, nil)
	assert.Contains(t, out, `subgraph P0["A (depth 2)"]`)
	assert.NotContains(t, out, "-->")
	assert.NotContains(t, out, "classDef")
}

func TestMermaid_Empty(t *testing.T) {
	assert.Equal(t, "graph TD\n", Mermaid(twoNodeScope(t, 0), nil))
}

func TestExportScope(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := ExportScope(twoNodeScope(t, 2), now)

	assert.Equal(t, "two-node", out.GraphID)
	assert.Equal(t, "2", out.MaxDepth)
	assert.Equal(t, "2026-03-01T12:00:00Z", out.ExportedAt)
	assert.Equal(t, 1, out.Info.Packages)
	require.Len(t, out.Packages, 1)

	a := out.Packages[0]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, 2, a.Depth)
	assert.Equal(t, 1.0, a.Weight)
	require.Len(t, a.Versions, 2)
	assert.Equal(t, []RequireExport{{Package: "B", Constraint: "1", Accepts: []string{"1"}, OutOfScope: true}}, a.Versions[0].Requires)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ExportScope(twoNodeScope(t, graph.Unbounded), time.Now())))

	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("}\n")))

	var decoded ScopeExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Packages, 2)
	assert.Equal(t, 8.0, decoded.Packages[1].Versions[1].Impact)
	assert.False(t, decoded.Packages[0].Versions[1].Requires[0].OutOfScope)
}
