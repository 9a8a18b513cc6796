package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseDocument decodes a graph document. JSON is recognised by a leading
// '{'; anything else is decoded as YAML.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return doc, fmt.Errorf("%w: empty document", ErrInvalidGraph)
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return doc, fmt.Errorf("%w: decode json: %v", ErrInvalidGraph, err)
		}
		return doc, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(trimmed))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("%w: decode yaml: %v", ErrInvalidGraph, err)
	}
	return doc, nil
}

// ReadDocument reads the graph document at path. When the document has no
// id, the file name without extension is used.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read graph document: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// LoadFile reads and builds the graph document at path.
func LoadFile(path string) (*Graph, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	g, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
