package graph

import (
	"context"
	"errors"
	"io"
)

// ErrGraphNotFound is returned when no graph is stored under an id.
var ErrGraphNotFound = errors.New("graph not found")

// Store persists materialized dependency graphs by id.
// Implementations: KuzuStore (production), MemStore (testing, single process).
//
// A stored graph is replaced as a whole by PutGraph, never edited in place,
// so a reader always sees either the old or the new graph and never a
// half-built one.
type Store interface {
	io.Closer

	// Schema setup: called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	PutGraph(ctx context.Context, g *Graph) error
	DeleteGraph(ctx context.Context, id string) error

	// Read operations.
	GetGraph(ctx context.Context, id string) (*Graph, error)
	ListGraphs(ctx context.Context) ([]GraphSummary, error)
}
