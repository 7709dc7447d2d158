package config

import (
	"github.com/leapstack-labs/layerlint/pkg/analysis"
	"github.com/leapstack-labs/layerlint/pkg/collector"
	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/leapstack-labs/layerlint/pkg/layer"
)

// Definitions builds layer definitions from the layers section. Collector
// errors name the offending layer.
func (d *Depfile) Definitions(reg *collector.Registry) ([]layer.Definition, error) {
	defs := make([]layer.Definition, 0, len(d.Layers))
	for _, spec := range d.Layers {
		cs, err := reg.BuildAll(spec.Name, spec.Collectors)
		if err != nil {
			return nil, err
		}
		defs = append(defs, layer.Definition{Name: spec.Name, Collectors: cs})
	}
	return defs, nil
}

// Assemble combines the depfile with an entity graph into an analysis
// configuration.
func (d *Depfile) Assemble(reg *collector.Registry, entities []core.Entity, edges []core.DependencyEdge, reportUntracked bool) (*analysis.Configuration, error) {
	defs, err := d.Definitions(reg)
	if err != nil {
		return nil, err
	}
	return &analysis.Configuration{
		Layers:          defs,
		Rules:           append([]core.RuleStatement(nil), d.Ruleset...),
		SkipViolations:  append([]core.SkipViolation(nil), d.SkipViolations...),
		ReportUntracked: reportUntracked,
		Entities:        entities,
		Edges:           edges,
	}, nil
}
