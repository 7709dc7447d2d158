package ruleset

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/layerlint/internal/dag"
	"github.com/leapstack-labs/layerlint/pkg/core"
)

// Ruleset is a validated, immutable set of rule statements. It is safe for
// concurrent use.
type Ruleset struct {
	layers          []string
	covered         map[string]struct{}            // layers that have a statement
	allowed         map[string]map[string]struct{} // effective allowed targets per layer
	skips           []skipKey                      // declaration order
	skipSet         map[skipKey]int                // skip -> position in skips
	reportUntracked bool
	workers         int
	logger          *slog.Logger
}

type skipKey struct {
	source, target string
}

// Option configures a Ruleset.
type Option func(*Ruleset)

// WithSkipViolations suppresses violations on the listed edges. Suppressed
// violations are reported in ViolationSet.Skipped.
func WithSkipViolations(skips []core.SkipViolation) Option {
	return func(r *Ruleset) {
		for _, s := range skips {
			for _, t := range s.Targets {
				k := skipKey{s.Source, t}
				if _, dup := r.skipSet[k]; dup {
					continue
				}
				r.skipSet[k] = len(r.skips)
				r.skips = append(r.skips, k)
			}
		}
	}
}

// WithUntrackedReporting records edges with exactly one tracked side in
// ViolationSet.Untracked.
func WithUntrackedReporting(enabled bool) Option {
	return func(r *Ruleset) { r.reportUntracked = enabled }
}

// WithWorkers sets the number of concurrent evaluation workers. n <= 0 means
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Ruleset) { r.workers = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ruleset) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New validates statements against the declared layers and precomputes the
// effective allowed set of every layer.
//
// Every statement layer and every allowed layer must be declared. A layer may
// have at most one statement. Transitive references ("+Layer") must not form
// a cycle.
func New(layers []string, statements []core.RuleStatement, opts ...Option) (*Ruleset, error) {
	g := dag.NewGraph()
	for _, l := range layers {
		if g.HasNode(l) {
			return nil, &core.ConfigurationError{Layer: l, Msg: "duplicate layer name"}
		}
		g.AddNode(l)
	}

	r := &Ruleset{
		layers:  append([]string(nil), layers...),
		covered: make(map[string]struct{}, len(statements)),
		allowed: make(map[string]map[string]struct{}, len(layers)),
		skipSet: make(map[skipKey]int),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	direct := make(map[string][]string, len(statements))
	for _, st := range statements {
		if !g.HasNode(st.Layer) {
			return nil, &core.ConfigurationError{Layer: st.Layer, Msg: "rule for undeclared layer"}
		}
		if _, dup := r.covered[st.Layer]; dup {
			return nil, &core.ConfigurationError{Layer: st.Layer, Msg: "duplicate rule statement"}
		}
		r.covered[st.Layer] = struct{}{}
		direct[st.Layer] = []string{}

		for _, entry := range st.Allowed {
			target, transitive := core.ParseAllowed(entry)
			if target == "" {
				return nil, &core.ConfigurationError{Layer: st.Layer, Msg: fmt.Sprintf("empty allowed layer %q", entry)}
			}
			if !g.HasNode(target) {
				return nil, &core.ConfigurationError{Layer: st.Layer, Msg: fmt.Sprintf("allows undeclared layer %q", target)}
			}
			direct[st.Layer] = append(direct[st.Layer], target)
			if transitive {
				if err := g.AddEdge(target, st.Layer); err != nil {
					return nil, &core.ConfigurationError{Layer: st.Layer, Msg: "transitive allowance cycle", Err: err}
				}
			}
		}
	}
	if err := g.FindCycle(); err != nil {
		return nil, &core.ConfigurationError{Msg: "transitive allowance cycle", Err: err}
	}

	for _, l := range layers {
		set := make(map[string]struct{})
		for _, t := range direct[l] {
			set[t] = struct{}{}
		}
		for _, u := range g.Upstream(l) {
			set[u] = struct{}{}
			for _, t := range direct[u] {
				set[t] = struct{}{}
			}
		}
		r.allowed[l] = set
	}

	for _, opt := range opts {
		opt(r)
	}
	for _, k := range r.skips {
		if k.source == "" || k.target == "" {
			return nil, &core.ConfigurationError{Entity: k.source, Msg: "skip_violations entry with an empty entity ID"}
		}
	}
	return r, nil
}

// Layers returns the declared layers in declaration order.
func (r *Ruleset) Layers() []string {
	return append([]string(nil), r.layers...)
}

// Covered reports whether layer has a rule statement.
func (r *Ruleset) Covered(layer string) bool {
	_, ok := r.covered[layer]
	return ok
}

// Allowed returns the effective allowed targets of a layer, including those
// inherited through transitive references, in declaration order.
func (r *Ruleset) Allowed(layer string) []string {
	set := r.allowed[layer]
	out := make([]string, 0, len(set))
	for _, l := range r.layers {
		if _, ok := set[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Permits reports whether a dependency from source layer to target layer is
// allowed. A layer may always depend on itself.
func (r *Ruleset) Permits(source, target string) bool {
	if source == target {
		return true
	}
	_, ok := r.allowed[source][target]
	return ok
}

// check classifies a layer pair. ok is true when the pair is permitted.
func (r *Ruleset) check(source, target string) (reason core.Reason, ok bool) {
	if r.Permits(source, target) {
		return 0, true
	}
	if _, covered := r.covered[source]; !covered {
		return core.ReasonUncovered, false
	}
	return core.ReasonForbidden, false
}
