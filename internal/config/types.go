// Package config reads depfiles: the layer definitions, ruleset, and skip
// list of a project, and assembles them into an analysis configuration.
package config

import (
	"fmt"

	"github.com/leapstack-labs/layerlint/pkg/collector"
	"github.com/leapstack-labs/layerlint/pkg/core"
	"gopkg.in/yaml.v3"
)

// Depfile is the decoded content of a depfile.
type Depfile struct {
	Path           string               `yaml:"-"` // Absolute path, set by LoadDepfile
	Imports        []string             `yaml:"imports"`
	Layers         []LayerSpec          `yaml:"layers"`
	Ruleset        Ruleset              `yaml:"ruleset"`
	SkipViolations SkipList             `yaml:"skip_violations"`
}

// LayerSpec is one entry of the layers section.
type LayerSpec struct {
	Name       string           `yaml:"name"`
	Collectors []collector.Spec `yaml:"collectors"`
}

// Ruleset is the ruleset section: layer -> allowed layers, in file order.
type Ruleset []core.RuleStatement

// UnmarshalYAML keeps the mapping's key order, which a Go map would lose.
func (r *Ruleset) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: ruleset must be a mapping of layer to allowed layers", node.Line)
	}
	out := make(Ruleset, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var allowed []string
		if !isNull(val) {
			if err := val.Decode(&allowed); err != nil {
				return fmt.Errorf("line %d: ruleset %q: %w", val.Line, key.Value, err)
			}
		}
		out = append(out, core.RuleStatement{Layer: key.Value, Allowed: allowed})
	}
	*r = out
	return nil
}

// SkipList is the skip_violations section: source entity -> target entities,
// in file order.
type SkipList []core.SkipViolation

// UnmarshalYAML keeps the mapping's key order.
func (s *SkipList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: skip_violations must be a mapping of entity to entities", node.Line)
	}
	out := make(SkipList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var targets []string
		if !isNull(val) {
			if err := val.Decode(&targets); err != nil {
				return fmt.Errorf("line %d: skip_violations %q: %w", val.Line, key.Value, err)
			}
		}
		out = append(out, core.SkipViolation{Source: key.Value, Targets: targets})
	}
	*s = out
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
