package layer

import (
	"context"
	"io"
	"log/slog"

	"github.com/leapstack-labs/layerlint/internal/parallel"
	"github.com/leapstack-labs/layerlint/pkg/collector"
	"github.com/leapstack-labs/layerlint/pkg/core"
)

// Definition is a named layer. It matches an entity when any of its
// collectors does; with no collectors it matches nothing.
type Definition struct {
	Name       string
	Collectors []collector.Collector
}

// Resolver assigns entities to layers.
type Resolver struct {
	defs    []Definition
	workers int
	logger  *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithWorkers sets the number of concurrent workers. n <= 0 means GOMAXPROCS.
func WithWorkers(n int) ResolverOption {
	return func(r *Resolver) { r.workers = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver validates defs and returns a Resolver. Layer names must be
// non-empty and unique.
func NewResolver(defs []Definition, opts ...ResolverOption) (*Resolver, error) {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, &core.ConfigurationError{Msg: "layer definition has an empty name"}
		}
		if _, dup := seen[d.Name]; dup {
			return nil, &core.ConfigurationError{Layer: d.Name, Msg: "duplicate layer name"}
		}
		seen[d.Name] = struct{}{}
		for _, c := range d.Collectors {
			if c == nil {
				return nil, &core.ConfigurationError{Layer: d.Name, Msg: "nil collector"}
			}
		}
	}

	r := &Resolver{
		defs:   append([]Definition(nil), defs...),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Layers returns the declared layer names in declaration order.
func (r *Resolver) Layers() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Resolve classifies entities. Duplicate entity IDs are a configuration
// error. The result does not depend on the worker count.
func (r *Resolver) Resolve(ctx context.Context, entities []core.Entity) (*MembershipIndex, error) {
	ids := make(map[string]int, len(entities))
	for i := range entities {
		id := entities[i].ID
		if id == "" {
			return nil, &core.ConfigurationError{Msg: "entity has an empty ID"}
		}
		if _, dup := ids[id]; dup {
			return nil, &core.ConfigurationError{Entity: id, Msg: "duplicate entity ID"}
		}
		ids[id] = i
	}

	// slots[i] holds indexes into r.defs for entities[i]; each chunk writes
	// only its own range.
	slots := make([][]int, len(entities))
	err := parallel.Chunks(ctx, len(entities), r.workers, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			e := &entities[i]
			for d := range r.defs {
				if collector.MatchesAny(r.defs[d].Collectors, e) {
					slots[i] = append(slots[i], d)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	idx := newIndex(r.Layers(), entities, ids, slots)
	r.logger.Debug("resolved layers",
		slog.Int("entities", len(entities)),
		slog.Int("layers", len(r.defs)),
		slog.Int("unassigned", len(idx.Unassigned())))
	return idx, nil
}
