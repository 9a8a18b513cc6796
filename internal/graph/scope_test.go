package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainGraph builds R -> X -> Y -> {R, Z}, a cycle back to the root plus a
// tail that is only reachable at depth 8.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := New(Document{
		ID:    "chain",
		Roots: []string{"R"},
		Packages: []PackageSpec{
			{Name: "R", Versions: []VersionSpec{{Version: "1.0.0", Requires: map[string]string{"X": "*"}}}},
			{Name: "X", Versions: []VersionSpec{
				{Version: "1.0.0", Requires: map[string]string{"Y": "^1"}},
				{Version: "2.0.0", Impact: 4, Requires: map[string]string{"Y": "^1"}},
			}},
			{Name: "Y", Versions: []VersionSpec{{Version: "1.0.0", Requires: map[string]string{"R": "*", "Z": "*"}}}},
			{Name: "Z", Versions: []VersionSpec{{Version: "0.1.0"}, {Version: "0.2.0"}, {Version: "0.3.0", Impact: 1}}},
			{Name: "unreached", Versions: []VersionSpec{{Version: "1.0.0"}}},
		},
	})
	require.NoError(t, err)
	return g
}

func scopeNames(s *Scope) []string {
	out := make([]string, 0, s.Len())
	for p := 0; p < s.Len(); p++ {
		out = append(out, s.Package(p).Name)
	}
	return out
}

func TestDepthBound_Validate(t *testing.T) {
	for _, ok := range []DepthBound{Unbounded, 0, 2, 4, 100} {
		assert.NoError(t, ok.Validate(), "bound %d", ok)
	}
	for _, bad := range []DepthBound{-2, -3, 1, 3, 7} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidDepth, "bound %d", bad)
	}
}

func TestLevelBound(t *testing.T) {
	assert.Equal(t, Unbounded, LevelBound(-1))
	assert.Equal(t, DepthBound(0), LevelBound(0))
	assert.Equal(t, DepthBound(2), LevelBound(1))
	assert.Equal(t, DepthBound(6), LevelBound(3))
	assert.Equal(t, "unbounded", Unbounded.String())
	assert.Equal(t, "4", DepthBound(4).String())
}

func TestScope_Bounds(t *testing.T) {
	g := chainGraph(t)
	tests := []struct {
		bound DepthBound
		want  []string
	}{
		{0, []string{}},
		{2, []string{"R"}},
		{4, []string{"R", "X"}},
		{6, []string{"R", "X", "Y"}},
		{8, []string{"R", "X", "Y", "Z"}},
		{Unbounded, []string{"R", "X", "Y", "Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.bound.String(), func(t *testing.T) {
			s, err := g.Scope(tt.bound)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scopeNames(s))
			assert.Equal(t, len(tt.want) == 0, s.Empty())
		})
	}
}

func TestScope_SubsetMonotone(t *testing.T) {
	g := chainGraph(t)
	prev := map[string]bool{}
	for _, d := range []DepthBound{0, 2, 4, 6, 8, 10} {
		s, err := g.Scope(d)
		require.NoError(t, err)
		cur := map[string]bool{}
		for _, n := range scopeNames(s) {
			cur[n] = true
		}
		for n := range prev {
			assert.True(t, cur[n], "%s dropped out of scope at bound %d", n, d)
		}
		prev = cur
	}
}

func TestScope_CycleTerminatesAndKeepsShortestDepth(t *testing.T) {
	g := chainGraph(t)
	s, err := g.Scope(Unbounded)
	require.NoError(t, err)

	r, _ := g.Lookup("R")
	p, ok := s.Position(r)
	require.True(t, ok)
	assert.Equal(t, 2, s.Depth(p), "root reached again through the cycle keeps depth 2")

	z, _ := g.Lookup("Z")
	p, ok = s.Position(z)
	require.True(t, ok)
	assert.Equal(t, 8, s.Depth(p))
	assert.Equal(t, 8, s.MaxDepth())

	u, _ := g.Lookup("unreached")
	_, ok = s.Position(u)
	assert.False(t, ok)
}

func TestScope_InvalidBound(t *testing.T) {
	g := chainGraph(t)
	_, err := g.Scope(3)
	assert.ErrorIs(t, err, ErrInvalidDepth)
}

func TestScope_Info(t *testing.T) {
	g := chainGraph(t)

	s, err := g.Scope(6)
	require.NoError(t, err)
	info := s.Info()
	assert.Equal(t, "chain", info.GraphID)
	assert.Equal(t, "6", info.MaxDepth)
	assert.Equal(t, 6, info.DepthReached)
	assert.Equal(t, 3, info.Packages)
	assert.Equal(t, 1, info.DirectPackages)
	assert.Equal(t, 4, info.Versions)
	// R->X, X@1->Y, X@2->Y, Y->R; Y->Z leaves the scope.
	assert.Equal(t, 4, info.Edges)
	assert.Equal(t, 1, info.VulnerableVersions)
	assert.Equal(t, "2", info.SearchSpace)

	full, err := g.Scope(Unbounded)
	require.NoError(t, err)
	assert.Equal(t, "6", full.Info().SearchSpace)

	empty, err := g.Scope(0)
	require.NoError(t, err)
	assert.Equal(t, "0", empty.Info().SearchSpace)
	assert.Equal(t, 0, empty.Info().DepthReached)
}
