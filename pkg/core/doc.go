// Package core defines the shared language of layerlint.
//
// This package contains:
//   - Domain entities (Entity, DependencyEdge)
//   - Ruleset data (RuleStatement, SkipViolation)
//   - Analysis output (Violation, Reason)
//   - Error kinds shared by every layer of the engine (ConfigurationError, NotFoundError)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
