package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
// Graphs are immutable, so the stored pointer is handed out directly.
type MemStore struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{graphs: make(map[string]*Graph)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// PutGraph stores g under its id, replacing any previous graph.
func (m *MemStore) PutGraph(_ context.Context, g *Graph) error {
	if g == nil {
		return fmt.Errorf("put graph: nil graph")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[g.ID()] = g
	return nil
}

// DeleteGraph removes the graph stored under id. Deleting a missing graph is
// not an error.
func (m *MemStore) DeleteGraph(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.graphs, id)
	return nil
}

// GetGraph returns the graph stored under id.
func (m *MemStore) GetGraph(_ context.Context, id string) (*Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	return g, nil
}

// ListGraphs returns a summary of every stored graph, sorted by id.
func (m *MemStore) ListGraphs(_ context.Context) ([]GraphSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]GraphSummary, 0, len(m.graphs))
	for _, g := range m.graphs {
		out = append(out, g.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
