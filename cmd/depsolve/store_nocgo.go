//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/depsolve/internal/graph"
)

func openKuzuStore(string) (graph.Store, error) {
	return nil, errors.New("the kuzu store requires a cgo build; use --store memory")
}
