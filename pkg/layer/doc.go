// Package layer classifies entities into named layers.
//
// A Definition pairs a layer name with collectors. The Resolver evaluates
// every definition against every entity once and returns a MembershipIndex
// holding both directions of the mapping: entity -> layers in declaration
// order, and layer -> entities in input order.
//
// An entity may belong to several layers or to none. Entities matching no
// layer stay in the index with an empty layer set.
package layer
