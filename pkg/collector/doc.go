// Package collector decides whether a code entity belongs to a layer.
//
// # Collectors
//
// A Collector is a pure boolean predicate over a core.Entity. The set of
// collector kinds is closed:
//
//   - NameMatches: glob or regular expression against the declared (or qualified) name
//   - PathContains: whole-segment match against the namespace/path segments
//   - ExtendsOrImplements: membership in the precomputed supertype closure
//   - HasTag: exact membership in the tag bag
//   - And, Or, Not: boolean composition, arbitrarily nested
//   - Expr: a Starlark boolean expression over the entity
//
// Every constructor validates its input, so a Collector that exists can always be
// evaluated. Composites with zero children are rejected with a
// *core.ConfigurationError at construction time.
//
// # Registry
//
// Config files describe collectors as maps with a "type" key. A Registry maps
// those type names to factories. Registries are plain values; build one with
// DefaultRegistry (built-in kinds) or NewRegistry (empty) and pass it to
// whatever assembles layer definitions:
//
//	reg := collector.DefaultRegistry()
//	c, err := reg.Build(collector.Spec{"type": "directory", "value": "Controller"})
//
// Custom kinds are added with Register and are only visible through that registry.
package collector
