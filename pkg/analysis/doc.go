// Package analysis runs a complete layer analysis and answers queries over
// its result.
//
// An Analyser validates a Configuration, resolves layer membership, and
// evaluates the ruleset. A configuration error aborts the run with no partial
// result. The Result is read-only and safe for concurrent use.
package analysis
