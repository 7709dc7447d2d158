package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/leapstack-labs/layerlint/pkg/layer"
	"github.com/leapstack-labs/layerlint/pkg/ruleset"
)

// Configuration is everything one analysis run needs.
type Configuration struct {
	Layers          []layer.Definition
	Rules           []core.RuleStatement
	SkipViolations  []core.SkipViolation
	ReportUntracked bool
	Entities        []core.Entity
	Edges           []core.DependencyEdge
}

// Analyser runs analyses and keeps the last successful result.
type Analyser struct {
	logger  *slog.Logger
	workers int

	mu   sync.RWMutex
	last *Result
}

// Option configures an Analyser.
type Option func(*Analyser)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyser) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithWorkers sets the worker count for resolution and evaluation.
// n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Analyser) { a.workers = n }
}

// NewAnalyser creates an Analyser.
func NewAnalyser(opts ...Option) *Analyser {
	a := &Analyser{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyse validates cfg, resolves layer membership, and evaluates the ruleset.
// Every run starts from scratch; on success the result replaces Last.
func (a *Analyser) Analyse(ctx context.Context, cfg *Configuration) (*Result, error) {
	start := time.Now()

	resolver, rs, err := a.prepare(cfg)
	if err != nil {
		return nil, err
	}

	index, err := resolver.Resolve(ctx, cfg.Entities)
	if err != nil {
		return nil, fmt.Errorf("resolve layers: %w", err)
	}

	vs, err := rs.Evaluate(ctx, index, cfg.Edges)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}

	res := &Result{index: index, rules: rs, set: vs}
	a.mu.Lock()
	a.last = res
	a.mu.Unlock()

	a.logger.Info("analysis complete",
		slog.Int("entities", index.Len()),
		slog.Int("layers", len(cfg.Layers)),
		slog.Int("edges", vs.Stats.Edges),
		slog.Int("violations", vs.Stats.Violations),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

// AnalyseLayer resolves membership only and returns the members of one
// layer. The ruleset is still validated so configuration errors surface the
// same way as in Analyse.
func (a *Analyser) AnalyseLayer(ctx context.Context, cfg *Configuration, name string) ([]string, error) {
	resolver, _, err := a.prepare(cfg)
	if err != nil {
		return nil, err
	}
	index, err := resolver.Resolve(ctx, cfg.Entities)
	if err != nil {
		return nil, fmt.Errorf("resolve layers: %w", err)
	}
	return index.EntitiesOf(name)
}

// Last returns the most recent successful result, or nil.
func (a *Analyser) Last() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

func (a *Analyser) prepare(cfg *Configuration) (*layer.Resolver, *ruleset.Ruleset, error) {
	if cfg == nil {
		return nil, nil, &core.ConfigurationError{Msg: "no configuration"}
	}

	resolver, err := layer.NewResolver(cfg.Layers,
		layer.WithWorkers(a.workers),
		layer.WithLogger(a.logger))
	if err != nil {
		return nil, nil, err
	}

	rs, err := ruleset.New(resolver.Layers(), cfg.Rules,
		ruleset.WithSkipViolations(cfg.SkipViolations),
		ruleset.WithUntrackedReporting(cfg.ReportUntracked),
		ruleset.WithWorkers(a.workers),
		ruleset.WithLogger(a.logger))
	if err != nil {
		return nil, nil, err
	}
	return resolver, rs, nil
}
