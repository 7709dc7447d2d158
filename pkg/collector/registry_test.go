package collector

import (
	"testing"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Build(t *testing.T) {
	r := DefaultRegistry()
	ctrl := entity(`App\Controller\UserController`, []string{`App\Controller\Base`}, []string{"http"})
	gen := entity(`App\Model\UserGenerated`, nil, []string{"generated"})

	tests := []struct {
		name string
		spec Spec
		e    *core.Entity
		want bool
	}{
		{"className glob", Spec{"type": "className", "value": "*Controller"}, ctrl, true},
		{"name regex field", Spec{"type": "name", "regex": "^User"}, ctrl, true},
		{"qualified name", Spec{"type": "name", "value": `App\Model\*`, "qualified": true}, gen, true},
		{"classNameRegex delimited", Spec{"type": "classNameRegex", "value": `/^app\\controller\\/i`, "qualified": true}, ctrl, true},
		{"classNameRegex bare", Spec{"type": "classNameRegex", "value": `Controller$`}, ctrl, true},
		{"directory", Spec{"type": "directory", "value": "Controller"}, ctrl, true},
		{"path miss", Spec{"type": "path", "value": "Model"}, ctrl, false},
		{"inherits", Spec{"type": "inherits", "value": `App\Controller\Base`}, ctrl, true},
		{"implements", Spec{"type": "implements", "value": "Countable"}, ctrl, false},
		{"tag", Spec{"type": "tag", "value": "generated"}, gen, true},
		{"expression", Spec{"type": "expression", "value": `"http" in entity.tags`}, ctrl, true},
		{
			"and",
			Spec{"type": "and", "collectors": []any{
				map[string]any{"type": "directory", "value": "Controller"},
				map[string]any{"type": "tag", "value": "http"},
			}},
			ctrl, true,
		},
		{
			"or",
			Spec{"type": "or", "collectors": []any{
				map[string]any{"type": "tag", "value": "cli"},
				map[string]any{"type": "tag", "value": "http"},
			}},
			ctrl, true,
		},
		{"not", Spec{"type": "not", "collector": map[string]any{"type": "tag", "value": "generated"}}, gen, false},
		{
			"bool excludes must_not",
			Spec{
				"type":     "bool",
				"must":     []any{map[string]any{"type": "directory", "value": "Model"}},
				"must_not": []any{map[string]any{"type": "tag", "value": "generated"}},
			},
			gen, false,
		},
		{
			"bool any_of",
			Spec{
				"type":   "bool",
				"any_of": []any{map[string]any{"type": "tag", "value": "cli"}, map[string]any{"type": "tag", "value": "http"}},
			},
			ctrl, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Build(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Matches(c, tt.e))
		})
	}
}

func TestRegistry_BuildErrors(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name      string
		spec      Spec
		collector string
		contains  string
	}{
		{"nil spec", nil, "", "empty collector"},
		{"missing type", Spec{"value": "x"}, "", `no "type"`},
		{"non-string type", Spec{"type": 3}, "", "non-empty string"},
		{"unknown type", Spec{"type": "layer", "value": "x"}, "layer", "available: and, bool"},
		{"unknown field", Spec{"type": "tag", "value": "x", "private": true}, "tag", "invalid fields"},
		{"missing value", Spec{"type": "directory"}, "directory", `missing "value"`},
		{"value and regex", Spec{"type": "name", "value": "a", "regex": "b"}, "name", "mutually exclusive"},
		{"empty and", Spec{"type": "and"}, "and", "no children"},
		{"not without child", Spec{"type": "not"}, "not", `missing "collector"`},
		{"empty bool", Spec{"type": "bool"}, "bool", "at least one of"},
		{"bad flag", Spec{"type": "classNameRegex", "value": "/x/q"}, "classNameRegex", "unsupported flag"},
		{
			"nested error keeps innermost type",
			Spec{"type": "or", "collectors": []any{map[string]any{"type": "tag"}}},
			"tag", `missing "value"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.spec)
			require.Error(t, err)
			var ce *core.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.collector, ce.Collector)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestRegistry_BuildAll(t *testing.T) {
	r := DefaultRegistry()

	cs, err := r.BuildAll("Controller", []Spec{
		{"type": "directory", "value": "Controller"},
		{"type": "className", "value": "*Action"},
	})
	require.NoError(t, err)
	assert.Len(t, cs, 2)

	_, err = r.BuildAll("Controller", []Spec{{"type": "directory"}})
	var ce *core.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Controller", ce.Layer)
	assert.Equal(t, "directory", ce.Collector)

	cs, err = r.BuildAll("Empty", nil)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestRegistry_Custom(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Kinds())

	r.Register("vendor", func(_ *Registry, f Fields) (Collector, error) {
		return Path("vendor")
	})
	assert.Equal(t, []string{"vendor"}, r.Kinds())

	c, err := r.Build(Spec{"type": "vendor"})
	require.NoError(t, err)
	assert.True(t, Matches(c, entity(`vendor/lib/Thing`, nil, nil)))

	_, err = r.Build(Spec{"type": "tag", "value": "x"})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestStripDelimiters(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`^App`, `^App`},
		{`/^App/`, `^App`},
		{`/^app/i`, `(?i)^app`},
		{`/a.b/is`, `(?is)a.b`},
		{`/a/ii`, `(?i)a`},
	}
	for _, tt := range tests {
		got, err := stripDelimiters(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
