package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Use errors.Is to classify errors returned by the engine.
var (
	// ErrConfiguration marks malformed or inconsistent layer/rule definitions.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound marks a query for a layer or entity that does not exist.
	ErrNotFound = errors.New("not found")
)

// ConfigurationError is returned when layer, collector, or rule definitions are
// malformed or inconsistent. A run that hits one produces no results.
type ConfigurationError struct {
	Layer     string // Offending layer, if any
	Collector string // Offending collector type, if any
	Entity    string // Offending entity ID, if any
	Msg       string
	Err       error // Underlying cause, if any
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.Layer != "" {
		fmt.Fprintf(&b, ": layer %q", e.Layer)
	}
	if e.Collector != "" {
		fmt.Fprintf(&b, ": collector %q", e.Collector)
	}
	if e.Entity != "" {
		fmt.Fprintf(&b, ": entity %q", e.Entity)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports ErrConfiguration as a match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by queries for a layer or entity that is not part
// of the analysis. Callers usually recover by reporting it to the user.
type NotFoundError struct {
	Kind string // "layer" or "entity"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is reports ErrNotFound as a match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// LayerNotFound builds a NotFoundError for a layer name.
func LayerNotFound(name string) error {
	return &NotFoundError{Kind: "layer", Name: name}
}

// EntityNotFound builds a NotFoundError for an entity ID.
func EntityNotFound(id string) error {
	return &NotFoundError{Kind: "entity", Name: id}
}
