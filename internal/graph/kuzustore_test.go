//go:build cgo

package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()), "InitSchema should not fail")
	return s
}

func TestKuzuStore_InitSchemaIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestKuzuStore_Contract(t *testing.T) {
	storeContract(t, newTestStore(t))
}

func TestKuzuStore_ConstraintLabelsSurvive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := chainGraph(t)
	require.NoError(t, s.PutGraph(ctx, g))
	got, err := s.GetGraph(ctx, "chain")
	require.NoError(t, err)

	x, _ := got.Lookup("X")
	e := got.Package(x).Versions[0].Requires[0]
	assert.Equal(t, "^1", e.Constraint)
	assert.Equal(t, []int{0}, e.Acceptable())
}

func TestKuzuStore_FileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "graphs.kuzu")

	s, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	g, err := New(twoNodeDoc())
	require.NoError(t, err)
	require.NoError(t, s.PutGraph(ctx, g))
	require.NoError(t, s.Close())

	s, err = NewKuzuFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.GetGraph(ctx, "two-node")
	require.NoError(t, err)
	assert.Equal(t, g.Stats(), got.Stats())
}

func TestKuzuStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetGraph(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrGraphNotFound)
}
