package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
ecosystem: PyPI
roots: [flask]
packages:
  - name: flask
    versions:
      - version: 2.0.0
        requires:
          werkzeug: ">=2.0.0"
      - version: 1.1.0
        impact: 5.3
        requires:
          werkzeug: "<2.0.0"
  - name: werkzeug
    weight: 2
    versions:
      - version: 1.0.1
        impact: 7.5
      - version: 2.2.3
`

func TestParseDocument_YAML(t *testing.T) {
	doc, err := ParseDocument([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "PyPI", doc.Ecosystem)
	assert.Equal(t, []string{"flask"}, doc.Roots)
	require.Len(t, doc.Packages, 2)
	require.NotNil(t, doc.Packages[1].Weight)
	assert.Equal(t, 2.0, *doc.Packages[1].Weight)
	assert.Equal(t, "<2.0.0", doc.Packages[0].Versions[1].Requires["werkzeug"])
}

func TestParseDocument_JSON(t *testing.T) {
	raw := `{"id":"j","roots":["a"],"packages":[{"name":"a","versions":[{"version":"1","impact":1}]}]}`
	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "j", doc.ID)
	assert.Equal(t, 1.0, doc.Packages[0].Versions[0].Impact)
}

func TestParseDocument_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":              "  \n",
		"unknown json field": `{"id":"x","bogus":1}`,
		"unknown yaml field": "id: x\nbogus: 1\n",
		"broken json":        `{"id":`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidGraph)
		})
	}
}

func TestLoadFile_DefaultsIDFromFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "requirements", g.ID())

	flask := g.Package(0)
	assert.Equal(t, "1.1.0", flask.Versions[0].Name)
	assert.Equal(t, []int{0}, flask.Versions[0].Requires[0].Acceptable())
	assert.Equal(t, []int{1}, flask.Versions[1].Requires[0].Acceptable())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
