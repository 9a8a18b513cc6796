//go:build e2e && cgo

package e2e

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// TestWebapp_KuzuMatchesMemory answers the suite from a KuzuDB file store
// and from memory.
func TestWebapp_KuzuMatchesMemory(t *testing.T) {
	store, err := graph.NewKuzuFileStore(filepath.Join(t.TempDir(), "graphs.kuzu"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	kz := newDispatcher(t, store, 1)
	mem := newDispatcher(t, graph.NewMemStore(), 1)

	for _, nr := range webappRequests() {
		assert.Equal(t, run(t, mem, nr), run(t, kz, nr), nr.name)
	}
}
