package collector

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/layerlint/pkg/core"
)

// Kind identifies the variant of a Collector.
type Kind int

// Collector kinds.
const (
	KindName Kind = iota
	KindPath
	KindExtends
	KindTag
	KindAnd
	KindOr
	KindNot
	KindExpr
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindPath:
		return "path"
	case KindExtends:
		return "extends"
	case KindTag:
		return "tag"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNot:
		return "not"
	case KindExpr:
		return "expression"
	default:
		return "unknown"
	}
}

// Collector is a validated membership predicate. The interface is sealed: only
// the types in this package implement it.
type Collector interface {
	// Kind returns the variant of this collector.
	Kind() Kind

	// String renders the collector for logs and debug output.
	String() string

	sealed()
}

// Matches reports whether c matches e. It is total and side-effect free.
// And stops at the first false child, Or at the first true one.
func Matches(c Collector, e *core.Entity) bool {
	switch c := c.(type) {
	case *NameCollector:
		return c.match(e)
	case *PathCollector:
		return e.HasPathRun(c.segments)
	case *ExtendsCollector:
		return e.HasSupertype(c.typeName)
	case *TagCollector:
		return e.HasTag(c.tag)
	case *AndCollector:
		for _, child := range c.children {
			if !Matches(child, e) {
				return false
			}
		}
		return true
	case *OrCollector:
		for _, child := range c.children {
			if Matches(child, e) {
				return true
			}
		}
		return false
	case *NotCollector:
		return !Matches(c.child, e)
	case *ExprCollector:
		return c.eval(e)
	default:
		return false
	}
}

// MatchesAny reports whether any collector in cs matches e.
// An empty list matches nothing.
func MatchesAny(cs []Collector, e *core.Entity) bool {
	for _, c := range cs {
		if Matches(c, e) {
			return true
		}
	}
	return false
}

// Must panics if err is non-nil. It is intended for collectors built from
// constants, like regexp.MustCompile.
func Must(c Collector, err error) Collector {
	if err != nil {
		panic(err)
	}
	return c
}

// =============================================================================
// Composites
// =============================================================================

// AndCollector matches when every child matches.
type AndCollector struct {
	children []Collector
}

// OrCollector matches when at least one child matches.
type OrCollector struct {
	children []Collector
}

// NotCollector inverts a single child.
type NotCollector struct {
	child Collector
}

// And builds a conjunction. At least one child is required.
func And(children ...Collector) (Collector, error) {
	if err := checkChildren(KindAnd, children); err != nil {
		return nil, err
	}
	return &AndCollector{children: append([]Collector(nil), children...)}, nil
}

// Or builds a disjunction. At least one child is required.
func Or(children ...Collector) (Collector, error) {
	if err := checkChildren(KindOr, children); err != nil {
		return nil, err
	}
	return &OrCollector{children: append([]Collector(nil), children...)}, nil
}

// Not inverts child, which must not be nil.
func Not(child Collector) (Collector, error) {
	if child == nil {
		return nil, &core.ConfigurationError{Collector: KindNot.String(), Msg: "composite has no child"}
	}
	return &NotCollector{child: child}, nil
}

func checkChildren(kind Kind, children []Collector) error {
	if len(children) == 0 {
		return &core.ConfigurationError{Collector: kind.String(), Msg: "composite has no children"}
	}
	for i, c := range children {
		if c == nil {
			return &core.ConfigurationError{Collector: kind.String(), Msg: "child " + strconv.Itoa(i) + " is nil"}
		}
	}
	return nil
}

// Children returns a copy of the conjunction's children.
func (c *AndCollector) Children() []Collector { return append([]Collector(nil), c.children...) }

// Children returns a copy of the disjunction's children.
func (c *OrCollector) Children() []Collector { return append([]Collector(nil), c.children...) }

// Child returns the inverted collector.
func (c *NotCollector) Child() Collector { return c.child }

func (*AndCollector) Kind() Kind { return KindAnd }
func (*OrCollector) Kind() Kind  { return KindOr }
func (*NotCollector) Kind() Kind { return KindNot }

func (c *AndCollector) String() string { return joinChildren("and", c.children) }
func (c *OrCollector) String() string  { return joinChildren("or", c.children) }
func (c *NotCollector) String() string { return "not(" + c.child.String() + ")" }

func (*AndCollector) sealed() {}
func (*OrCollector) sealed()  {}
func (*NotCollector) sealed() {}

func joinChildren(op string, children []Collector) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}
