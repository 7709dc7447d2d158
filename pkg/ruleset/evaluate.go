package ruleset

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/layerlint/internal/parallel"
	"github.com/leapstack-labs/layerlint/pkg/core"
)

// Membership answers which layers an entity belongs to. The bool is false
// for entities that were never resolved. *layer.MembershipIndex implements it.
type Membership interface {
	LayersOf(id string) ([]string, bool)
}

// Stats counts what an evaluation saw.
type Stats struct {
	Edges      int `json:"edges"`
	Untracked  int `json:"untracked"`   // edges with a side in no layer
	SameLayer  int `json:"same_layer"`  // layer pairs skipped because source == target
	Permitted  int `json:"permitted"`   // layer pairs allowed by the ruleset
	Violations int `json:"violations"`  // reported violations
	Skipped    int `json:"skipped"`     // violations suppressed by skip_violations
}

// ViolationSet is the outcome of an evaluation. Slices are ordered by edge,
// then source layer, then target layer.
type ViolationSet struct {
	Violations     []core.Violation      `json:"violations"`
	Skipped        []core.Violation      `json:"skipped"`
	UnmatchedSkips []core.DependencyEdge `json:"unmatched_skips"`
	Untracked      []core.DependencyEdge `json:"untracked"`
	Stats          Stats                 `json:"stats"`
}

// edgeResult is one edge's contribution, written by exactly one worker.
type edgeResult struct {
	violations []core.Violation
	skipped    []core.Violation
	untracked  bool
	reportable bool // untracked with exactly one tracked side
	sameLayer  int
	permitted  int
	skipIndex  int // position in r.skips when the edge is listed, else -1
}

// Evaluate checks every edge against the ruleset. It never modifies index or
// edges. The result does not depend on the worker count.
func (r *Ruleset) Evaluate(ctx context.Context, index Membership, edges []core.DependencyEdge) (*ViolationSet, error) {
	results := make([]edgeResult, len(edges))
	err := parallel.Chunks(ctx, len(edges), r.workers, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			results[i] = r.evaluateEdge(index, edges[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	vs := &ViolationSet{
		Violations:     []core.Violation{},
		Skipped:        []core.Violation{},
		UnmatchedSkips: []core.DependencyEdge{},
		Untracked:      []core.DependencyEdge{},
	}
	matched := make([]bool, len(r.skips))
	for i := range results {
		res := &results[i]
		vs.Violations = append(vs.Violations, res.violations...)
		vs.Skipped = append(vs.Skipped, res.skipped...)
		if res.untracked {
			vs.Stats.Untracked++
			if res.reportable {
				vs.Untracked = append(vs.Untracked, edges[i])
			}
		}
		if res.skipIndex >= 0 && len(res.skipped) > 0 {
			matched[res.skipIndex] = true
		}
		vs.Stats.SameLayer += res.sameLayer
		vs.Stats.Permitted += res.permitted
	}
	for i, k := range r.skips {
		if !matched[i] {
			vs.UnmatchedSkips = append(vs.UnmatchedSkips, core.DependencyEdge{Source: k.source, Target: k.target})
		}
	}
	vs.Stats.Edges = len(edges)
	vs.Stats.Violations = len(vs.Violations)
	vs.Stats.Skipped = len(vs.Skipped)

	r.logger.Debug("evaluated ruleset",
		slog.Int("edges", vs.Stats.Edges),
		slog.Int("violations", vs.Stats.Violations),
		slog.Int("skipped", vs.Stats.Skipped),
		slog.Int("untracked", vs.Stats.Untracked))
	return vs, nil
}

func (r *Ruleset) evaluateEdge(index Membership, edge core.DependencyEdge) edgeResult {
	res := edgeResult{skipIndex: -1}
	sourceLayers, _ := index.LayersOf(edge.Source)
	targetLayers, _ := index.LayersOf(edge.Target)

	if len(sourceLayers) == 0 || len(targetLayers) == 0 {
		res.untracked = true
		res.reportable = r.reportUntracked && (len(sourceLayers) > 0 || len(targetLayers) > 0)
		return res
	}

	if pos, ok := r.skipSet[skipKey{edge.Source, edge.Target}]; ok {
		res.skipIndex = pos
	}

	for _, sl := range sourceLayers {
		for _, tl := range targetLayers {
			if sl == tl {
				res.sameLayer++
				continue
			}
			reason, ok := r.check(sl, tl)
			if ok {
				res.permitted++
				continue
			}
			v := core.Violation{Edge: edge, SourceLayer: sl, TargetLayer: tl, Reason: reason}
			if res.skipIndex >= 0 {
				res.skipped = append(res.skipped, v)
			} else {
				res.violations = append(res.violations, v)
			}
		}
	}
	return res
}

// ByLayer counts violations per source layer.
func (vs *ViolationSet) ByLayer() map[string]int {
	counts := make(map[string]int)
	for _, v := range vs.Violations {
		counts[v.SourceLayer]++
	}
	return counts
}
