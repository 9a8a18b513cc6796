package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// chain is R -> M -> L with L also requiring R back.
func chain(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(graph.Document{
		ID:    "chain",
		Roots: []string{"R"},
		Packages: []graph.PackageSpec{
			{Name: "R", Versions: []graph.VersionSpec{
				{Version: "1.0.0", Requires: map[string]string{"M": "^1"}},
				{Version: "2.0.0", Requires: map[string]string{"M": "^2"}},
			}},
			{Name: "M", Versions: []graph.VersionSpec{
				{Version: "1.0.0", Requires: map[string]string{"L": "<1.5.0"}},
				{Version: "2.0.0", Requires: map[string]string{"L": ">=1.5.0"}},
			}},
			{Name: "L", Versions: []graph.VersionSpec{
				{Version: "1.0.0", Impact: 1, Requires: map[string]string{"R": "1.0.0"}},
				{Version: "1.5.0", Impact: 3},
			}},
		},
	})
	require.NoError(t, err)
	return g
}

func TestIsConsistent(t *testing.T) {
	g := chain(t)
	tests := []struct {
		name  string
		bound graph.DepthBound
		cfg   Configuration
		want  bool
	}{
		{"full valid", graph.Unbounded, Configuration{"R": "1.0.0", "M": "1.0.0", "L": "1.0.0"}, true},
		{"full valid other branch", graph.Unbounded, Configuration{"R": "2.0.0", "M": "2.0.0", "L": "1.5.0"}, true},
		{"root edge violated", graph.Unbounded, Configuration{"R": "1.0.0", "M": "2.0.0", "L": "1.5.0"}, false},
		{"deep edge violated", graph.Unbounded, Configuration{"R": "1.0.0", "M": "1.0.0", "L": "1.5.0"}, false},
		{"cycle edge violated", graph.Unbounded, Configuration{"R": "2.0.0", "L": "1.0.0"}, false},
		{"deep violation beyond bound", 4, Configuration{"R": "1.0.0", "M": "1.0.0", "L": "1.5.0"}, true},
		{"root violation within bound 4", 4, Configuration{"R": "2.0.0", "M": "1.0.0"}, false},
		{"unassigned target is unconstrained", graph.Unbounded, Configuration{"R": "1.0.0", "L": "1.5.0"}, true},
		{"single package", 2, Configuration{"R": "2.0.0"}, true},
		{"nothing assigned", graph.Unbounded, Configuration{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := g.Scope(tt.bound)
			require.NoError(t, err)
			m := Compile(s)
			got, err := m.IsConsistent(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsConsistent_OutOfRangeVersion(t *testing.T) {
	g := chain(t)
	s, err := g.Scope(graph.Unbounded)
	require.NoError(t, err)
	assert.False(t, IsConsistent(s, Assignment{0: 5}))
}

func TestCompile_DropsEdgesLeavingScope(t *testing.T) {
	g := chain(t)
	s, err := g.Scope(4)
	require.NoError(t, err)
	m := Compile(s)
	require.Equal(t, 2, m.Len())

	ctx := t.Context()
	count, err := m.CountConfigurations(ctx, Options{})
	require.NoError(t, err)
	// R@1-M@1 and R@2-M@2; L is out of scope and unconstrained.
	assert.Equal(t, int64(2), count.Configurations)

	full := Compile(mustScope(t, g, graph.Unbounded))
	count, err = full.CountConfigurations(ctx, Options{})
	require.NoError(t, err)
	// L@1.0.0 forces R@1.0.0, so R@2 only pairs with L@1.5.0.
	assert.Equal(t, int64(2), count.Configurations)
}

func mustScope(t *testing.T, g *graph.Graph, bound graph.DepthBound) *graph.Scope {
	t.Helper()
	s, err := g.Scope(bound)
	require.NoError(t, err)
	return s
}
