package analysis

import (
	"slices"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/leapstack-labs/layerlint/pkg/layer"
	"github.com/leapstack-labs/layerlint/pkg/ruleset"
)

// Result is the read-only outcome of one analysis run. Returned slices are
// copies.
type Result struct {
	index *layer.MembershipIndex
	rules *ruleset.Ruleset
	set   *ruleset.ViolationSet
}

// LayersOf returns the layers of an entity in declaration order. An entity
// that was not analysed is a NotFoundError; an entity in no layer returns an
// empty slice.
func (r *Result) LayersOf(entity string) ([]string, error) {
	layers, ok := r.index.LayersOf(entity)
	if !ok {
		return nil, core.EntityNotFound(entity)
	}
	return layers, nil
}

// EntitiesOf returns the members of a layer. An undeclared layer is a
// NotFoundError.
func (r *Result) EntitiesOf(layerName string) ([]string, error) {
	return r.index.EntitiesOf(layerName)
}

// Layers returns the declared layers in declaration order.
func (r *Result) Layers() []string { return r.index.Layers() }

// Entities returns every analysed entity in input order.
func (r *Result) Entities() []string { return r.index.Entities() }

// Unassigned returns the entities that belong to no layer.
func (r *Result) Unassigned() []string { return r.index.Unassigned() }

// Allowed returns the effective allowed targets of a layer.
func (r *Result) Allowed(layerName string) []string { return r.rules.Allowed(layerName) }

// Violations returns the reported violations.
func (r *Result) Violations() []core.Violation { return slices.Clone(r.set.Violations) }

// Skipped returns violations suppressed by skip_violations.
func (r *Result) Skipped() []core.Violation { return slices.Clone(r.set.Skipped) }

// UnmatchedSkips returns skip_violations entries that suppressed nothing.
func (r *Result) UnmatchedSkips() []core.DependencyEdge { return slices.Clone(r.set.UnmatchedSkips) }

// Untracked returns edges with exactly one tracked side, when untracked
// reporting was enabled.
func (r *Result) Untracked() []core.DependencyEdge { return slices.Clone(r.set.Untracked) }

// Stats returns the evaluation counters.
func (r *Result) Stats() ruleset.Stats { return r.set.Stats }

// ViolationSet returns a copy of the full violation set.
func (r *Result) ViolationSet() ruleset.ViolationSet {
	return ruleset.ViolationSet{
		Violations:     r.Violations(),
		Skipped:        r.Skipped(),
		UnmatchedSkips: r.UnmatchedSkips(),
		Untracked:      r.Untracked(),
		Stats:          r.set.Stats,
	}
}

// ViolationsByLayer counts violations per source layer.
func (r *Result) ViolationsByLayer() map[string]int { return r.set.ByLayer() }
