package core

import (
	"slices"
	"strings"
)

// Entity is a code-level unit (class, module, file) subject to layer classification.
// Entities are built once per analysis run by an external analyser and are
// read-only afterwards.
type Entity struct {
	ID         string   // Fully-qualified name, e.g. `App\Controller\UserController`
	Name       string   // Declared name, e.g. "UserController"
	Path       []string // Namespace/path segments, outermost first
	Supertypes []string // Transitive supertype/interface closure, precomputed
	Tags       []string // Arbitrary labels
}

// idSeparators are tried in order when splitting a fully-qualified ID.
var idSeparators = []string{`\`, "::", "/", "."}

// SplitEntityID derives the declared name and path segments from a
// fully-qualified ID. The first separator found in the ID wins, so
// "github.com/acme/svc.Handler" splits on "/" rather than ".".
func SplitEntityID(id string) (name string, path []string) {
	for _, sep := range idSeparators {
		if !strings.Contains(id, sep) {
			continue
		}
		var parts []string
		for _, p := range strings.Split(id, sep) {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return id, nil
		}
		return parts[len(parts)-1], parts[:len(parts)-1]
	}
	return id, nil
}

// NewEntity builds an entity from its ID, deriving Name and Path when the
// caller has none to offer.
func NewEntity(id string, supertypes, tags []string) Entity {
	name, path := SplitEntityID(id)
	return Entity{
		ID:         id,
		Name:       name,
		Path:       path,
		Supertypes: supertypes,
		Tags:       tags,
	}
}

// HasTag reports whether tag is present in the entity's tag bag.
func (e *Entity) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag)
}

// HasSupertype reports whether typeName is in the supertype closure.
func (e *Entity) HasSupertype(typeName string) bool {
	return slices.Contains(e.Supertypes, typeName)
}

// HasPathRun reports whether segments appears as a contiguous run inside Path.
// Matching is by whole segment only.
func (e *Entity) HasPathRun(segments []string) bool {
	if len(segments) == 0 || len(segments) > len(e.Path) {
		return false
	}
	for i := 0; i+len(segments) <= len(e.Path); i++ {
		if slices.Equal(e.Path[i:i+len(segments)], segments) {
			return true
		}
	}
	return false
}

// DependencyEdge states that Source statically depends on Target.
// Both ends are entity IDs.
type DependencyEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind,omitempty"` // Optional: "uses", "extends", ... (reporting only)
}

// String returns "source -> target".
func (d DependencyEdge) String() string {
	return d.Source + " -> " + d.Target
}
