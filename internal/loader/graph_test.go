package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlGraph = `
entities:
  - id: App\Controller\UserController
    supertypes: [App\Controller\BaseController]
    tags: [http]
    depends_on: [App\Model\User]
  - id: App\Model\User
  - id: pkg/store.Store
    name: Store
    path: [pkg, store]
edges:
  - {source: App\Model\User, target: App\Controller\UserController, kind: uses}
`

const jsonGraph = `{
  "entities": [
    {"id": "a.B", "depends_on": ["c.D"]},
    {"id": "c.D", "tags": ["x"]}
  ],
  "edges": [{"source": "c.D", "target": "a.B"}]
}`

func TestParseGraph_YAML(t *testing.T) {
	g, err := ParseGraph([]byte(yamlGraph))
	require.NoError(t, err)

	entities := g.CoreEntities()
	require.Len(t, entities, 3)
	assert.Equal(t, core.Entity{
		ID:         `App\Controller\UserController`,
		Name:       "UserController",
		Path:       []string{"App", "Controller"},
		Supertypes: []string{`App\Controller\BaseController`},
		Tags:       []string{"http"},
	}, entities[0])
	assert.Equal(t, "Store", entities[2].Name)
	assert.Equal(t, []string{"pkg", "store"}, entities[2].Path)

	assert.Equal(t, []core.DependencyEdge{
		{Source: `App\Controller\UserController`, Target: `App\Model\User`},
		{Source: `App\Model\User`, Target: `App\Controller\UserController`, Kind: "uses"},
	}, g.CoreEdges())
}

func TestParseGraph_JSON(t *testing.T) {
	g, err := ParseGraph([]byte(jsonGraph))
	require.NoError(t, err)

	entities := g.CoreEntities()
	require.Len(t, entities, 2)
	assert.Equal(t, "B", entities[0].Name)
	assert.Equal(t, []string{"a"}, entities[0].Path)
	assert.Len(t, g.CoreEdges(), 2)
}

func TestParseGraph_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"unknown field", "entities:\n  - id: A\n    parent: B\n", "parent"},
		{"missing id", "entities:\n  - name: A\n", "entity 0 has no id"},
		{"half edge", "edges:\n  - source: A\n", "edge 0 needs both"},
		{"bad yaml", "entities: [", "invalid graph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGraph([]byte(tt.data))
			var pe *GraphParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseGraph_Empty(t *testing.T) {
	g, err := ParseGraph(nil)
	require.NoError(t, err)
	assert.Empty(t, g.CoreEntities())
	assert.Empty(t, g.CoreEdges())
}

func TestLoadGraph(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(p, []byte(jsonGraph), 0o600))

	g, err := LoadGraph(p)
	require.NoError(t, err)
	assert.Len(t, g.Entities, 2)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("edges: [{source: A}]"), 0o600))
	_, err = LoadGraph(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	_, err = LoadGraph(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
