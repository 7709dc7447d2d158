// Package loader reads the entity graph produced by an external source
// analyser. The file may be YAML or JSON; JSON is read with the same decoder
// since it is a subset of YAML.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"gopkg.in/yaml.v3"
)

// Graph is the decoded graph file.
type Graph struct {
	Entities []EntityRecord `yaml:"entities"`
	Edges    []EdgeRecord   `yaml:"edges"`
}

// EntityRecord is one entity as written by the analyser. Name and Path are
// derived from ID when omitted.
type EntityRecord struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Path       []string `yaml:"path"`
	Supertypes []string `yaml:"supertypes"`
	Tags       []string `yaml:"tags"`
	DependsOn  []string `yaml:"depends_on"`
}

// EdgeRecord is one explicit dependency edge.
type EdgeRecord struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Kind   string `yaml:"kind"`
}

// GraphParseError reports a malformed graph file.
type GraphParseError struct {
	File    string
	Message string
}

func (e *GraphParseError) Error() string {
	if e.File == "" {
		return "invalid graph: " + e.Message
	}
	return fmt.Sprintf("invalid graph %s: %s", e.File, e.Message)
}

// LoadGraph reads and validates a graph file.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from flags or config
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	g, err := ParseGraph(data)
	if err != nil {
		var pe *GraphParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return g, nil
}

// ParseGraph decodes graph data. Unknown fields are rejected so typos in the
// analyser output do not silently drop facts.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, &GraphParseError{Message: err.Error()}
	}

	for i, e := range g.Entities {
		if strings.TrimSpace(e.ID) == "" {
			return nil, &GraphParseError{Message: fmt.Sprintf("entity %d has no id", i)}
		}
	}
	for i, e := range g.Edges {
		if e.Source == "" || e.Target == "" {
			return nil, &GraphParseError{Message: fmt.Sprintf("edge %d needs both source and target", i)}
		}
	}
	return &g, nil
}

// CoreEntities converts the records to core entities, in file order.
func (g *Graph) CoreEntities() []core.Entity {
	out := make([]core.Entity, len(g.Entities))
	for i, rec := range g.Entities {
		e := core.NewEntity(rec.ID, rec.Supertypes, rec.Tags)
		if rec.Name != "" {
			e.Name = rec.Name
		}
		if rec.Path != nil {
			e.Path = rec.Path
		}
		out[i] = e
	}
	return out
}

// CoreEdges returns every dependency: first the depends_on lists in entity
// order, then the explicit edges in file order.
func (g *Graph) CoreEdges() []core.DependencyEdge {
	var out []core.DependencyEdge
	for _, rec := range g.Entities {
		for _, target := range rec.DependsOn {
			out = append(out, core.DependencyEdge{Source: rec.ID, Target: target})
		}
	}
	for _, e := range g.Edges {
		out = append(out, core.DependencyEdge{Source: e.Source, Target: e.Target, Kind: e.Kind})
	}
	return out
}
