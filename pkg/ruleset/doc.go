// Package ruleset checks dependency edges against allowed layer-to-layer
// relationships.
//
// A Ruleset is built once from rule statements and validated against the
// declared layers. Evaluate then projects a set of edges through a membership
// index into a ViolationSet. For an edge s -> t every pair of a layer of s and
// a layer of t is checked:
//
//   - same layer: permitted
//   - target allowed for the source layer: permitted
//   - source layer has no statement: Uncovered
//   - otherwise: Forbidden
//
// Edges where either side belongs to no layer are untracked and never produce
// violations.
package ruleset
