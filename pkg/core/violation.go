package core

import (
	"fmt"
	"strings"
)

// =============================================================================
// Reason
// =============================================================================

// Reason explains why a layer-to-layer dependency was not permitted.
type Reason int

const (
	// ReasonForbidden means the source layer has a rule statement that does not
	// list the target layer.
	ReasonForbidden Reason = iota
	// ReasonUncovered means the source layer has no rule statement at all.
	ReasonUncovered
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonForbidden:
		return "forbidden"
	case ReasonUncovered:
		return "uncovered"
	default:
		return "unknown"
	}
}

// ParseReason converts a string to a Reason value.
func ParseReason(s string) (Reason, bool) {
	switch strings.ToLower(s) {
	case "forbidden":
		return ReasonForbidden, true
	case "uncovered":
		return ReasonUncovered, true
	default:
		return ReasonForbidden, false
	}
}

// MarshalText implements encoding.TextMarshaler so reasons render as words in JSON.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	parsed, ok := ParseReason(string(text))
	if !ok {
		return fmt.Errorf("unknown reason %q", text)
	}
	*r = parsed
	return nil
}

// =============================================================================
// Violation
// =============================================================================

// Violation is one (edge, source layer, target layer) triple that the ruleset
// does not permit. Violations are produced, never mutated.
type Violation struct {
	Edge        DependencyEdge `json:"edge"`
	SourceLayer string         `json:"source_layer"`
	TargetLayer string         `json:"target_layer"`
	Reason      Reason         `json:"reason"`
}

// Key identifies a violation across runs. Two runs report the same violation
// when their keys are equal.
func (v Violation) Key() string {
	return strings.Join([]string{v.Edge.Source, v.Edge.Target, v.SourceLayer, v.TargetLayer}, "\x1f")
}

// String renders the violation for logs.
func (v Violation) String() string {
	return fmt.Sprintf("%s (%s) must not depend on %s (%s): %s",
		v.Edge.Source, v.SourceLayer, v.Edge.Target, v.TargetLayer, v.Reason)
}
