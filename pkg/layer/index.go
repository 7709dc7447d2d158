package layer

import (
	"slices"

	"github.com/leapstack-labs/layerlint/pkg/core"
)

// MembershipIndex is the immutable result of a Resolve. It is safe for
// concurrent reads. Every returned slice is a copy.
type MembershipIndex struct {
	layers   []string
	declared map[string]struct{}
	entities []string            // input order
	byEntity map[string][]string // entity -> layers, declaration order
	byLayer  map[string][]string // layer -> entities, input order
}

func newIndex(layers []string, entities []core.Entity, ids map[string]int, slots [][]int) *MembershipIndex {
	idx := &MembershipIndex{
		layers:   layers,
		declared: make(map[string]struct{}, len(layers)),
		entities: make([]string, len(entities)),
		byEntity: make(map[string][]string, len(ids)),
		byLayer:  make(map[string][]string, len(layers)),
	}
	for _, l := range layers {
		idx.declared[l] = struct{}{}
	}

	for i := range entities {
		id := entities[i].ID
		idx.entities[i] = id
		names := make([]string, len(slots[i]))
		for j, d := range slots[i] {
			names[j] = layers[d]
			idx.byLayer[layers[d]] = append(idx.byLayer[layers[d]], id)
		}
		idx.byEntity[id] = names
	}
	return idx
}

// LayersOf returns the layers of an entity in declaration order. The bool is
// false when the entity was not part of the resolve.
func (m *MembershipIndex) LayersOf(id string) ([]string, bool) {
	names, ok := m.byEntity[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(names), true
}

// EntitiesOf returns the members of a layer in input order. An undeclared
// layer is a NotFoundError; a declared layer with no members returns an empty
// slice.
func (m *MembershipIndex) EntitiesOf(layer string) ([]string, error) {
	if _, ok := m.declared[layer]; !ok {
		return nil, core.LayerNotFound(layer)
	}
	out := slices.Clone(m.byLayer[layer])
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Entities returns every resolved entity ID in input order.
func (m *MembershipIndex) Entities() []string {
	return slices.Clone(m.entities)
}

// Layers returns the declared layer names in declaration order.
func (m *MembershipIndex) Layers() []string {
	return slices.Clone(m.layers)
}

// HasLayer reports whether layer was declared.
func (m *MembershipIndex) HasLayer(layer string) bool {
	_, ok := m.declared[layer]
	return ok
}

// Tracked reports whether the entity belongs to at least one layer.
func (m *MembershipIndex) Tracked(id string) bool {
	return len(m.byEntity[id]) > 0
}

// Unassigned returns the entities that belong to no layer, in input order.
func (m *MembershipIndex) Unassigned() []string {
	out := []string{}
	for _, id := range m.entities {
		if len(m.byEntity[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of resolved entities.
func (m *MembershipIndex) Len() int {
	return len(m.entities)
}
