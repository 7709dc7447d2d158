package collector

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/layerlint/pkg/core"
)

// Spec is the raw configuration of one collector, as decoded from a depfile.
// The "type" key selects the factory; the remaining keys are its fields.
type Spec = map[string]any

// Factory builds a collector from the fields of a Spec. The registry is passed
// so composite kinds can build their children.
type Factory func(r *Registry, fields Fields) (Collector, error)

// Fields holds every field a built-in kind may read. Keys not listed here are
// rejected during decoding.
type Fields struct {
	Value      string `mapstructure:"value"`
	Regex      string `mapstructure:"regex"`
	Qualified  bool   `mapstructure:"qualified"`
	Collectors []Spec `mapstructure:"collectors"`
	Collector  Spec   `mapstructure:"collector"`
	Must       []Spec `mapstructure:"must"`
	MustNot    []Spec `mapstructure:"must_not"`
	AnyOf      []Spec `mapstructure:"any_of"`
}

// Registry maps config type names to factories. It is an explicit value; the
// zero value is not usable, use NewRegistry or DefaultRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in kind registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{"className", "name"} {
		r.Register(name, buildName)
	}
	r.Register("classNameRegex", buildNameRegex)
	for _, name := range []string{"directory", "path"} {
		r.Register(name, buildPath)
	}
	for _, name := range []string{"inherits", "extends", "implements"} {
		r.Register(name, buildExtends)
	}
	r.Register("tag", buildTag)
	r.Register("and", buildAnd)
	r.Register("or", buildOr)
	r.Register("not", buildNot)
	r.Register("bool", buildBool)
	r.Register("expression", buildExpr)
	return r
}

// Register adds or replaces the factory for a type name.
func (r *Registry) Register(typeName string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = f
}

// Kinds returns the registered type names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build turns one Spec into a Collector.
func (r *Registry) Build(spec Spec) (Collector, error) {
	if spec == nil {
		return nil, &core.ConfigurationError{Msg: "empty collector"}
	}
	raw, ok := spec["type"]
	if !ok {
		return nil, &core.ConfigurationError{Msg: `collector has no "type"`}
	}
	typeName, ok := raw.(string)
	if !ok || typeName == "" {
		return nil, &core.ConfigurationError{Msg: fmt.Sprintf(`collector "type" must be a non-empty string, got %v`, raw)}
	}

	r.mu.RLock()
	factory, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.ConfigurationError{
			Collector: typeName,
			Msg:       "unknown collector type (available: " + strings.Join(r.Kinds(), ", ") + ")",
		}
	}

	fields, err := decodeFields(spec)
	if err != nil {
		return nil, &core.ConfigurationError{Collector: typeName, Msg: "invalid fields", Err: err}
	}

	c, err := factory(r, fields)
	if err != nil {
		return nil, withCollector(err, typeName)
	}
	return c, nil
}

// BuildAll builds the collector list of one layer. Errors are annotated with
// the layer name.
func (r *Registry) BuildAll(layer string, specs []Spec) ([]Collector, error) {
	out := make([]Collector, 0, len(specs))
	for _, spec := range specs {
		c, err := r.Build(spec)
		if err != nil {
			return nil, withLayer(err, layer)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeFields(spec Spec) (Fields, error) {
	rest := make(map[string]any, len(spec))
	for k, v := range spec {
		if k != "type" {
			rest[k] = v
		}
	}

	var fields Fields
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &fields,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return Fields{}, err
	}
	if err := dec.Decode(rest); err != nil {
		return Fields{}, err
	}
	return fields, nil
}

// withCollector fills in the collector type on configuration errors raised by
// a factory, keeping the innermost type when one is already set.
func withCollector(err error, typeName string) error {
	if ce, ok := err.(*core.ConfigurationError); ok {
		if ce.Collector == "" {
			cp := *ce
			cp.Collector = typeName
			return &cp
		}
		return err
	}
	return &core.ConfigurationError{Collector: typeName, Err: err}
}

func withLayer(err error, layer string) error {
	if ce, ok := err.(*core.ConfigurationError); ok && ce.Layer == "" {
		cp := *ce
		cp.Layer = layer
		return &cp
	}
	return err
}

// =============================================================================
// Built-in factories
// =============================================================================

func requireValue(f Fields) error {
	if f.Value == "" {
		return &core.ConfigurationError{Msg: `missing "value"`}
	}
	return nil
}

func buildName(_ *Registry, f Fields) (Collector, error) {
	var opts []NameOption
	if f.Qualified {
		opts = append(opts, Qualified())
	}
	switch {
	case f.Value != "" && f.Regex != "":
		return nil, &core.ConfigurationError{Msg: `"value" and "regex" are mutually exclusive`}
	case f.Regex != "":
		return NameRegex(f.Regex, opts...)
	case f.Value != "":
		return Name(f.Value, opts...)
	default:
		return nil, &core.ConfigurationError{Msg: `missing "value" or "regex"`}
	}
}

func buildNameRegex(_ *Registry, f Fields) (Collector, error) {
	if err := requireValue(f); err != nil {
		return nil, err
	}
	pattern, err := stripDelimiters(f.Value)
	if err != nil {
		return nil, &core.ConfigurationError{Msg: "invalid regular expression", Err: err}
	}
	var opts []NameOption
	if f.Qualified {
		opts = append(opts, Qualified())
	}
	return NameRegex(pattern, opts...)
}

// delimited matches "/body/flags" and captures both parts.
var delimited = regexp.MustCompile(`^/(.*)/([a-zA-Z]*)$`)

// stripDelimiters converts a delimited pattern such as /^App\\.*Controller$/i
// into RE2 syntax. Patterns without delimiters are returned unchanged.
func stripDelimiters(pattern string) (string, error) {
	m := delimited.FindStringSubmatch(pattern)
	if m == nil {
		return pattern, nil
	}
	body, flags := m[1], m[2]
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's', 'U':
			if !strings.ContainsRune(inline.String(), f) {
				inline.WriteRune(f)
			}
		default:
			return "", fmt.Errorf("unsupported flag %q", f)
		}
	}
	if inline.Len() == 0 {
		return body, nil
	}
	return "(?" + inline.String() + ")" + body, nil
}

func buildPath(_ *Registry, f Fields) (Collector, error) {
	if err := requireValue(f); err != nil {
		return nil, err
	}
	return Path(f.Value)
}

func buildExtends(_ *Registry, f Fields) (Collector, error) {
	if err := requireValue(f); err != nil {
		return nil, err
	}
	return Extends(f.Value)
}

func buildTag(_ *Registry, f Fields) (Collector, error) {
	if err := requireValue(f); err != nil {
		return nil, err
	}
	return Tag(f.Value)
}

func buildExpr(_ *Registry, f Fields) (Collector, error) {
	if err := requireValue(f); err != nil {
		return nil, err
	}
	return Expr(f.Value)
}

func (r *Registry) buildList(specs []Spec) ([]Collector, error) {
	out := make([]Collector, 0, len(specs))
	for _, s := range specs {
		c, err := r.Build(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func buildAnd(r *Registry, f Fields) (Collector, error) {
	children, err := r.buildList(f.Collectors)
	if err != nil {
		return nil, err
	}
	return And(children...)
}

func buildOr(r *Registry, f Fields) (Collector, error) {
	children, err := r.buildList(f.Collectors)
	if err != nil {
		return nil, err
	}
	return Or(children...)
}

func buildNot(r *Registry, f Fields) (Collector, error) {
	if f.Collector == nil {
		return nil, &core.ConfigurationError{Msg: `missing "collector"`}
	}
	child, err := r.Build(f.Collector)
	if err != nil {
		return nil, err
	}
	return Not(child)
}

// buildBool composes must, any_of and must_not into
// And(must..., Or(any_of...), Not(Or(must_not...))), omitting empty groups.
func buildBool(r *Registry, f Fields) (Collector, error) {
	if len(f.Must) == 0 && len(f.MustNot) == 0 && len(f.AnyOf) == 0 {
		return nil, &core.ConfigurationError{Msg: `needs at least one of "must", "must_not", "any_of"`}
	}

	parts, err := r.buildList(f.Must)
	if err != nil {
		return nil, err
	}

	if len(f.AnyOf) > 0 {
		anyOf, err := r.buildList(f.AnyOf)
		if err != nil {
			return nil, err
		}
		or, err := Or(anyOf...)
		if err != nil {
			return nil, err
		}
		parts = append(parts, or)
	}

	if len(f.MustNot) > 0 {
		mustNot, err := r.buildList(f.MustNot)
		if err != nil {
			return nil, err
		}
		or, err := Or(mustNot...)
		if err != nil {
			return nil, err
		}
		not, err := Not(or)
		if err != nil {
			return nil, err
		}
		parts = append(parts, not)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return And(parts...)
}
