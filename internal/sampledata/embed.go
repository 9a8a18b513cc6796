// Package sampledata embeds example dependency graph documents for
// distribution inside the depsolve binary. The embedded filesystem is rooted
// at "graphs/" and holds one YAML document per graph.
package sampledata

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dusk-indust/depsolve/internal/graph"
)

// GraphsFS contains the embedded graph documents.
//
//go:embed graphs/*.yaml
var GraphsFS embed.FS

// Names lists the embedded graphs by file name without extension.
func Names() []string {
	entries, err := fs.ReadDir(GraphsFS, "graphs")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Raw returns the document text of the named graph.
func Raw(name string) ([]byte, error) {
	data, err := GraphsFS.ReadFile(path.Join("graphs", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("sample graph %q: %w", name, err)
	}
	return data, nil
}

// Document parses the named graph.
func Document(name string) (graph.Document, error) {
	data, err := Raw(name)
	if err != nil {
		return graph.Document{}, err
	}
	return graph.ParseDocument(data)
}
