package collector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/leapstack-labs/layerlint/pkg/core"
)

// =============================================================================
// NameMatches
// =============================================================================

// NameCollector matches the entity's declared name (or its fully-qualified ID)
// against a glob or a regular expression.
type NameCollector struct {
	pattern   string
	regex     bool
	qualified bool
	glob      glob.Glob
	re        *regexp.Regexp
}

// NameOption configures a NameCollector.
type NameOption func(*NameCollector)

// Regex interprets the pattern as an RE2 regular expression instead of a glob.
func Regex() NameOption {
	return func(c *NameCollector) { c.regex = true }
}

// Qualified matches against the fully-qualified ID instead of the declared name.
func Qualified() NameOption {
	return func(c *NameCollector) { c.qualified = true }
}

// Name builds a NameMatches collector. By default pattern is a glob where '*'
// spans any run of characters, '?' matches one, and {a,b} alternates.
// Backslashes are literal so namespaced IDs can be written as-is.
func Name(pattern string, opts ...NameOption) (Collector, error) {
	c := &NameCollector{pattern: pattern}
	for _, opt := range opts {
		opt(c)
	}
	if pattern == "" {
		return nil, &core.ConfigurationError{Collector: KindName.String(), Msg: "empty name pattern"}
	}

	if c.regex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &core.ConfigurationError{Collector: KindName.String(), Msg: "invalid regular expression", Err: err}
		}
		c.re = re
		return c, nil
	}

	g, err := glob.Compile(strings.ReplaceAll(pattern, `\`, `\\`))
	if err != nil {
		return nil, &core.ConfigurationError{Collector: KindName.String(), Msg: "invalid glob", Err: err}
	}
	c.glob = g
	return c, nil
}

// NameRegex builds a NameMatches collector from an RE2 regular expression.
func NameRegex(pattern string, opts ...NameOption) (Collector, error) {
	return Name(pattern, append(opts, Regex())...)
}

func (c *NameCollector) match(e *core.Entity) bool {
	subject := e.Name
	if c.qualified {
		subject = e.ID
	}
	if c.re != nil {
		return c.re.MatchString(subject)
	}
	return c.glob.Match(subject)
}

// Pattern returns the source pattern.
func (c *NameCollector) Pattern() string { return c.pattern }

func (*NameCollector) Kind() Kind { return KindName }
func (*NameCollector) sealed()    {}

func (c *NameCollector) String() string {
	fn := "name"
	if c.qualified {
		fn = "qualified_name"
	}
	if c.regex {
		fn += "_regex"
	}
	return fmt.Sprintf("%s(%q)", fn, c.pattern)
}

// =============================================================================
// PathContains
// =============================================================================

// pathSeparators split a multi-segment PathContains argument.
var pathSeparators = []string{`\`, "::", "/"}

// PathCollector matches when its segments appear, whole and contiguous, in the
// entity's path.
type PathCollector struct {
	segment  string
	segments []string
}

// Path builds a PathContains collector. A segment such as "Http/Controller"
// matches the contiguous run [Http Controller]; it never matches a substring of
// a single segment.
func Path(segment string) (Collector, error) {
	segments := splitSegments(segment)
	if len(segments) == 0 {
		return nil, &core.ConfigurationError{Collector: KindPath.String(), Msg: "empty path segment"}
	}
	return &PathCollector{segment: segment, segments: segments}, nil
}

func splitSegments(s string) []string {
	for _, sep := range pathSeparators {
		if !strings.Contains(s, sep) {
			continue
		}
		var out []string
		for _, p := range strings.Split(s, sep) {
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	if s == "" {
		return nil
	}
	return []string{s}
}

func (*PathCollector) Kind() Kind       { return KindPath }
func (*PathCollector) sealed()          {}
func (c *PathCollector) String() string { return fmt.Sprintf("path(%q)", c.segment) }

// =============================================================================
// ExtendsOrImplements
// =============================================================================

// ExtendsCollector matches entities whose supertype closure contains a type.
type ExtendsCollector struct {
	typeName string
}

// Extends builds an ExtendsOrImplements collector.
func Extends(typeName string) (Collector, error) {
	if typeName == "" {
		return nil, &core.ConfigurationError{Collector: KindExtends.String(), Msg: "empty type name"}
	}
	return &ExtendsCollector{typeName: typeName}, nil
}

func (*ExtendsCollector) Kind() Kind       { return KindExtends }
func (*ExtendsCollector) sealed()          {}
func (c *ExtendsCollector) String() string { return fmt.Sprintf("extends(%q)", c.typeName) }

// =============================================================================
// HasTag
// =============================================================================

// TagCollector matches entities carrying an exact tag.
type TagCollector struct {
	tag string
}

// Tag builds a HasTag collector.
func Tag(tag string) (Collector, error) {
	if tag == "" {
		return nil, &core.ConfigurationError{Collector: KindTag.String(), Msg: "empty tag"}
	}
	return &TagCollector{tag: tag}, nil
}

func (*TagCollector) Kind() Kind       { return KindTag }
func (*TagCollector) sealed()          {}
func (c *TagCollector) String() string { return fmt.Sprintf("tag(%q)", c.tag) }
