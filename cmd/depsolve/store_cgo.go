//go:build cgo

package main

import (
	"fmt"

	"github.com/dusk-indust/depsolve/internal/graph"
)

func openKuzuStore(path string) (graph.Store, error) {
	store, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	return store, nil
}
