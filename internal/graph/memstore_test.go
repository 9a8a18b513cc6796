package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behaviour every Store implementation must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	g, err := New(twoNodeDoc())
	require.NoError(t, err)
	require.NoError(t, s.PutGraph(ctx, g))

	got, err := s.GetGraph(ctx, "two-node")
	require.NoError(t, err)
	assert.Equal(t, g.Stats(), got.Stats())
	assert.Equal(t, g.Roots(), got.Roots())
	assert.True(t, g.Moment().Equal(got.Moment()))
	b, ok := got.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, 8.0, got.Package(b).Versions[1].Impact)
	a, _ := got.Lookup("A")
	assert.Equal(t, []int{1}, got.Package(a).Versions[1].Requires[0].Acceptable())

	chain := chainGraph(t)
	require.NoError(t, s.PutGraph(ctx, chain))

	list, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chain", list[0].ID)
	assert.Equal(t, "two-node", list[1].ID)
	assert.Equal(t, chain.Stats(), list[0].Stats)

	// Replacing keeps a single entry.
	require.NoError(t, s.PutGraph(ctx, g))
	list, err = s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteGraph(ctx, "chain"))
	_, err = s.GetGraph(ctx, "chain")
	assert.ErrorIs(t, err, ErrGraphNotFound)
}

func TestMemStore_Contract(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.InitSchema(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	storeContract(t, s)
}

func TestMemStore_PutNil(t *testing.T) {
	assert.Error(t, NewMemStore().PutGraph(context.Background(), nil))
}
