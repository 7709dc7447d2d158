package core

import "strings"

// TransitivePrefix marks an allowed layer whose own allowances are inherited.
// "+Service" in Controller's list means Controller may depend on Service and on
// everything Service may depend on.
const TransitivePrefix = "+"

// RuleStatement declares which target layers a source layer may depend on.
type RuleStatement struct {
	Layer   string
	Allowed []string
}

// ParseAllowed splits an allowed-list entry into its layer name and whether it
// was marked transitive.
func ParseAllowed(entry string) (layer string, transitive bool) {
	if strings.HasPrefix(entry, TransitivePrefix) {
		return strings.TrimPrefix(entry, TransitivePrefix), true
	}
	return entry, false
}

// SkipViolation suppresses violations on the edges Source -> Targets[i].
type SkipViolation struct {
	Source  string
	Targets []string
}
